// Package users resolves external identities to local user records,
// provisioning a record on first sight.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrMissingContact rejects provisioning when the identity provider has no
// email for the user; the record would not be attributable.
var ErrMissingContact = errors.New("email not found from identity provider profile")

type Provisioner struct {
	Users    core.UserStore
	Identity core.IdentityProvider

	group singleflight.Group
}

func NewProvisioner(store core.UserStore, idp core.IdentityProvider) *Provisioner {
	return &Provisioner{Users: store, Identity: idp}
}

// Resolve returns the local user for externalID, creating it when absent.
// Concurrent calls for one identity yield the same single record.
func (p *Provisioner) Resolve(ctx context.Context, externalID string) (*domain.User, error) {
	u, err := p.Users.GetUserByExternalID(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	v, err, shared := p.group.Do(externalID, func() (any, error) {
		return p.provision(context.WithoutCancel(ctx), externalID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("module", "app.users").Str("external_id", externalID).Msg("shared provisioning result")
	}
	return v.(*domain.User), nil
}

func (p *Provisioner) provision(ctx context.Context, externalID string) (*domain.User, error) {
	profile, err := p.Identity.GetUser(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return p.Upsert(ctx, externalID, profile)
}

// Upsert creates the local record from profile. A record that already exists
// (including one created concurrently) is returned as is.
func (p *Provisioner) Upsert(ctx context.Context, externalID string, profile core.Profile) (*domain.User, error) {
	email := profile.PrimaryEmail()
	if email == "" {
		return nil, ErrMissingContact
	}
	u, err := domain.NewUser(externalID, email, profile.FirstName, profile.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("build user: %w", err)
	}

	err = p.Users.CreateUser(ctx, u)
	switch {
	case err == nil:
		log.Info().Str("module", "app.users").Str("external_id", externalID).Str("user", string(u.ID)).Msg("provisioned user")
		return u, nil
	case errors.Is(err, core.ErrDuplicate):
		existing, gerr := p.Users.GetUserByExternalID(ctx, externalID)
		if gerr != nil {
			return nil, fmt.Errorf("refetch user after conflict: %w", gerr)
		}
		log.Info().Str("module", "app.users").Str("external_id", externalID).Msg("user already provisioned")
		return existing, nil
	default:
		return nil, fmt.Errorf("create user: %w", err)
	}
}

// Remove deletes the local record; a missing record is not an error.
func (p *Provisioner) Remove(ctx context.Context, externalID string) error {
	err := p.Users.DeleteUserByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete user: %w", err)
	}
	log.Info().Str("module", "app.users").Str("external_id", externalID).Msg("removed user")
	return nil
}
