package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/gorilla/websocket"
)

// fakeServer speaks the platform protocol and records request types per path.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu   sync.Mutex
	seen []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		f.serve(ws, r.URL.Path, r.Header.Get("Authorization"))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) url() string { return "ws" + strings.TrimPrefix(f.srv.URL, "http") }

func (f *fakeServer) record(s string) {
	f.mu.Lock()
	f.seen = append(f.seen, s)
	f.mu.Unlock()
}

func (f *fakeServer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func (f *fakeServer) serve(ws *websocket.Conn, path, auth string) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var in envelope
		if err := json.Unmarshal(data, &in); err != nil {
			return
		}
		f.record(path + ":" + in.Type)

		out := envelope{Type: typeOK, RID: in.RID}
		switch {
		case in.Type == typeConnect && auth != "Bearer good":
			out = envelope{Type: typeError, RID: in.RID, Code: codeUnauthorized, Message: "bad token"}
		case in.Type == typeJoin && in.CallID == "drop":
			return
		case in.Type == typeJoin && in.CallID == "missing":
			out = envelope{Type: typeError, RID: in.RID, Code: "call_not_found", Message: "no such call"}
		}
		if err := ws.WriteJSON(out); err != nil {
			return
		}
		if in.Type == typeWatch {
			_ = ws.WriteJSON(envelope{
				Type:        typeEvent,
				Event:       "message.new",
				ChannelKind: in.ChannelKind,
				ChannelID:   in.ChannelID,
				Payload:     json.RawMessage(`{"text":"` + in.ChannelKind + `"}`),
			})
		}
		if in.Type == typeDisconnect {
			return
		}
	}
}

var ann = domain.ParticipantIdentity{UserID: "u1", DisplayName: "Ann"}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestVideoJoinLeaveDisconnect(t *testing.T) {
	f := newFakeServer(t)
	p := New(f.url(), "key")
	ctx := ctxT(t)

	vc, err := p.ConnectVideo(ctx, ann, "good")
	if err != nil {
		t.Fatal(err)
	}
	if vc.UserID() != "u1" {
		t.Fatalf("UserID = %q", vc.UserID())
	}
	call := vc.Call("livestream", "c1")
	if err := call.Join(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := call.Leave(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vc.Disconnect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vc.Disconnect(ctx); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}

	want := []string{"/video:connect", "/video:join", "/video:leave", "/video:disconnect"}
	got := f.calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestConnectRejected(t *testing.T) {
	f := newFakeServer(t)
	ctx := ctxT(t)

	_, err := New(f.url(), "key").ConnectVideo(ctx, ann, "bad")
	if !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("bad token err = %v", err)
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.Code() != codeUnauthorized {
		t.Fatalf("want RemoteError, got %v", err)
	}

	_, err = New(f.url(), "wrong").ConnectChat(ctx, ann, "good")
	if !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("bad api key err = %v", err)
	}
}

func TestJoinError(t *testing.T) {
	f := newFakeServer(t)
	ctx := ctxT(t)

	vc, err := New(f.url(), "key").ConnectVideo(ctx, ann, "good")
	if err != nil {
		t.Fatal(err)
	}
	defer vc.Disconnect(ctx)

	err = vc.Call("livestream", "missing").Join(ctx, false)
	var re *RemoteError
	if !errors.As(err, &re) || re.Code() != "call_not_found" {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("remote failure should classify as transport: %v", err)
	}
}

func TestChannelEvents(t *testing.T) {
	f := newFakeServer(t)
	ctx := ctxT(t)

	cc, err := New(f.url(), "key").ConnectChat(ctx, ann, "good")
	if err != nil {
		t.Fatal(err)
	}
	ch := cc.Channel("messaging", "c1")
	if cc.Channel("messaging", "c1") != ch {
		t.Fatal("Channel should return the same handle for one kind and id")
	}
	team := cc.Channel("team", "c1")
	if team == ch || team.Kind() != "team" {
		t.Fatalf("Channel(team, c1) = %s handle, want a separate team channel", team.Kind())
	}
	for _, c := range []core.Channel{ch, team} {
		if err := c.Watch(ctx); err != nil {
			t.Fatal(err)
		}
	}

	for _, c := range []core.Channel{ch, team} {
		select {
		case ev := <-c.Events():
			want := `{"text":"` + c.Kind() + `"}`
			if ev.Type != "message.new" || ev.ChannelID != "c1" || string(ev.Payload) != want {
				t.Fatalf("%s event = %+v", c.Kind(), ev)
			}
		case <-ctx.Done():
			t.Fatalf("no event delivered to %s", c.Kind())
		}
	}

	if err := cc.Disconnect(ctx); err != nil {
		t.Fatal(err)
	}
	for _, c := range []core.Channel{ch, team} {
		if _, ok := <-c.Events(); ok {
			t.Fatalf("%s events should be closed after disconnect", c.Kind())
		}
	}
}

func TestRequestFailsWhenServerDrops(t *testing.T) {
	f := newFakeServer(t)
	ctx := ctxT(t)

	vc, err := New(f.url(), "key").ConnectVideo(ctx, ann, "good")
	if err != nil {
		t.Fatal(err)
	}
	if err := vc.Call("livestream", "drop").Join(ctx, true); !errors.Is(err, core.ErrTransport) {
		t.Fatalf("dropped join err = %v", err)
	}
	if err := vc.Call("livestream", "c1").Join(ctx, true); !errors.Is(err, core.ErrTransport) {
		t.Fatalf("join on closed conn err = %v", err)
	}
	if err := vc.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect after drop: %v", err)
	}
}
