package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Collab/internal/app/users"
	"github.com/dkeye/Collab/internal/core"
)

const (
	UserCreated = "clerk/user.created"
	UserDeleted = "clerk/user.deleted"
)

type userPayload struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (p userPayload) profile() core.Profile {
	out := core.Profile{ID: p.ID, FirstName: p.FirstName, ImageURL: p.ImageURL}
	for _, e := range p.EmailAddresses {
		out.Emails = append(out.Emails, e.EmailAddress)
	}
	return out
}

// RegisterUserSync keeps local users in step with the identity provider.
func RegisterUserSync(d *Dispatcher, p *users.Provisioner) {
	d.Handle(UserCreated, func(ctx context.Context, ev Event) error {
		var u userPayload
		if err := json.Unmarshal(ev.Data, &u); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if u.ID == "" {
			return errors.New("user event without id")
		}
		_, err := p.Upsert(ctx, u.ID, u.profile())
		return err
	})
	d.Handle(UserDeleted, func(ctx context.Context, ev Event) error {
		var u userPayload
		if err := json.Unmarshal(ev.Data, &u); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		return p.Remove(ctx, u.ID)
	})
}
