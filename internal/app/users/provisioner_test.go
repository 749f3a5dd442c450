package users

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/core/mocks"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/dkeye/Collab/internal/storage/sqlite"
	"go.uber.org/mock/gomock"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResolveExistingUserSkipsIdentityProvider(t *testing.T) {
	store := newStore(t)
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	u, _ := domain.NewUser("ext-1", "ann@example.com", "Ann", "")
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	got, err := NewProvisioner(store, idp).Resolve(context.Background(), "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved %s, want %s", got.ID, u.ID)
	}
}

func TestResolveProvisionsFromProfile(t *testing.T) {
	store := newStore(t)
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	idp.EXPECT().GetUser(gomock.Any(), "ext-1").Return(core.Profile{
		ID:     "ext-1",
		Emails: []string{"", "ann@example.com"},
	}, nil)

	got, err := NewProvisioner(store, idp).Resolve(context.Background(), "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "ann@example.com" || got.Name != domain.DefaultUsername || got.ImageURL != "" {
		t.Fatalf("provisioned %+v", got)
	}
}

func TestResolveConcurrentCreatesOneRecord(t *testing.T) {
	store := newStore(t)
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	idp.EXPECT().GetUser(gomock.Any(), "ext-1").
		Return(core.Profile{ID: "ext-1", FirstName: "Ann", Emails: []string{"ann@example.com"}}, nil).
		MinTimes(1)
	p := NewProvisioner(store, idp)

	const n = 16
	var (
		wg  sync.WaitGroup
		ids = make([]domain.UserID, n)
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := p.Resolve(context.Background(), "ext-1")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids[i] = u.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("got different users %v", ids)
		}
	}
	if count, _ := store.CountUsers(context.Background()); count != 1 {
		t.Fatalf("users = %d, want 1", count)
	}
	u, _ := store.GetUserByExternalID(context.Background(), "ext-1")
	if u.Email != "ann@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
}

// racingStore reports a miss on the first lookup, then a conflict on create,
// as if another process provisioned the identity in between.
type racingStore struct {
	core.UserStore
	mu     sync.Mutex
	missed bool
	winner *domain.User
}

func (s *racingStore) GetUserByExternalID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.missed {
		s.missed = true
		return nil, core.ErrNotFound
	}
	return s.winner, nil
}

func (s *racingStore) CreateUser(context.Context, *domain.User) error {
	return core.ErrDuplicate
}

func TestResolveConflictRefetches(t *testing.T) {
	winner, _ := domain.NewUser("ext-1", "ann@example.com", "Ann", "")
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	idp.EXPECT().GetUser(gomock.Any(), "ext-1").
		Return(core.Profile{Emails: []string{"late@example.com"}}, nil)

	got, err := NewProvisioner(&racingStore{winner: winner}, idp).Resolve(context.Background(), "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != winner.ID {
		t.Fatalf("got %s, want existing %s", got.ID, winner.ID)
	}
}

func TestResolveRejectsProfileWithoutEmail(t *testing.T) {
	store := newStore(t)
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	idp.EXPECT().GetUser(gomock.Any(), "ext-1").Return(core.Profile{ID: "ext-1", FirstName: "Ann"}, nil)

	_, err := NewProvisioner(store, idp).Resolve(context.Background(), "ext-1")
	if !errors.Is(err, ErrMissingContact) {
		t.Fatalf("err = %v, want ErrMissingContact", err)
	}
	if count, _ := store.CountUsers(context.Background()); count != 0 {
		t.Fatalf("users = %d, want 0", count)
	}
}

func TestResolvePropagatesIdentityProviderFailure(t *testing.T) {
	idp := mocks.NewMockIdentityProvider(gomock.NewController(t))
	idp.EXPECT().GetUser(gomock.Any(), "ext-1").Return(core.Profile{}, core.ErrTransport)

	_, err := NewProvisioner(newStore(t), idp).Resolve(context.Background(), "ext-1")
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newStore(t)
	p := NewProvisioner(store, nil)
	if err := p.Remove(context.Background(), "nobody"); err != nil {
		t.Fatal(err)
	}
}
