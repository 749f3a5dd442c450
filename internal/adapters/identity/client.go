package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/Collab/internal/core"
)

// Client fetches user profiles from the identity provider's backend API.
type Client struct {
	BaseURL   string
	SecretKey string

	http *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type userResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (c *Client) GetUser(ctx context.Context, externalID string) (core.Profile, error) {
	endpoint := c.BaseURL + "/v1/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return core.Profile{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return core.Profile{}, core.ErrUserNotFound
	case res.StatusCode != http.StatusOK:
		return core.Profile{}, fmt.Errorf("%w: identity provider returned %d", core.ErrTransport, res.StatusCode)
	}

	var u userResponse
	if err := json.NewDecoder(res.Body).Decode(&u); err != nil {
		return core.Profile{}, fmt.Errorf("%w: decode user: %v", core.ErrTransport, err)
	}
	p := core.Profile{ID: u.ID, FirstName: u.FirstName, ImageURL: u.ImageURL}
	for _, e := range u.EmailAddresses {
		p.Emails = append(p.Emails, e.EmailAddress)
	}
	return p, nil
}
