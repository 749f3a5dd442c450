package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("platform: send buffer full")
	ErrClosed       = errors.New("platform: connection closed")
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
	readLimit  = 1 << 16
)

// conn multiplexes request/response pairs over one websocket, keyed by rid.
type conn struct {
	ws      *websocket.Conn
	send    chan []byte
	onEvent func(envelope)
	name    string

	mu      sync.Mutex
	pending map[string]chan envelope

	done chan struct{}
	once sync.Once
}

func dial(ctx context.Context, d *websocket.Dialer, url string, header http.Header, onEvent func(envelope)) (*conn, error) {
	ws, res, err := d.DialContext(ctx, url, header)
	if err != nil {
		if res != nil && (res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: dial %s: %v", core.ErrUnauthenticated, url, err)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", core.ErrTransport, url, err)
	}
	ws.SetReadLimit(readLimit)

	c := &conn{
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		onEvent: onEvent,
		name:    url,
		pending: make(map[string]chan envelope),
		done:    make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

func (c *conn) TrySend(b []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *conn) Close() {
	c.once.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// request sends msg with a fresh rid and waits for the matching reply.
func (c *conn) request(ctx context.Context, msg envelope) error {
	msg.RID = uuid.NewString()
	reply := make(chan envelope, 1)

	c.mu.Lock()
	c.pending[msg.RID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RID)
		c.mu.Unlock()
	}()

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("platform %s: marshal: %w", msg.Type, err)
	}
	if err := c.TrySend(b); err != nil {
		return fmt.Errorf("%w: platform %s: %v", core.ErrTransport, msg.Type, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("%w: platform %s: %v", core.ErrTransport, msg.Type, ErrClosed)
	case env := <-reply:
		if env.Type == typeError {
			return &RemoteError{Op: msg.Type, ErrCode: env.Code, Message: env.Message}
		}
		return nil
	}
}

// shutdown says goodbye and closes the socket. Closing twice is a no-op.
func (c *conn) shutdown(ctx context.Context) error {
	if c.Closed() {
		return nil
	}
	err := c.request(ctx, envelope{Type: typeDisconnect})
	c.Close()
	return err
}

func (c *conn) resolve(env envelope) {
	c.mu.Lock()
	reply, ok := c.pending[env.RID]
	c.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "adapters.platform").Str("rid", env.RID).Msg("reply without pending request")
		return
	}
	select {
	case reply <- env:
	default:
	}
}

func (c *conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Warn().Str("module", "adapters.platform").Err(err).Msg("set write deadline")
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Str("module", "adapters.platform").Str("conn", c.name).Err(err).Msg("write failed")
				c.Close()
				return
			}
		}
	}
}

func (c *conn) readPump() {
	defer c.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.Closed() {
				log.Debug().Str("module", "adapters.platform").Str("conn", c.name).Err(err).Msg("read loop ended")
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Str("module", "adapters.platform").Err(err).Msg("bad frame")
			continue
		}
		switch env.Type {
		case typeOK, typeError:
			c.resolve(env)
		case typeEvent:
			if c.onEvent != nil {
				c.onEvent(env)
			}
		default:
			log.Debug().Str("module", "adapters.platform").Str("type", env.Type).Msg("unknown frame")
		}
	}
}
