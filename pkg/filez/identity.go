package filez

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// SessionCookieName is the cookie the service sets once the handshake succeeds.
const SessionCookieName = "filez_session"

// DeviceAuthConfig returns the OAuth2 device-flow configuration of the identity service.
// The application id doubles as the OAuth2 client id.
func DeviceAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID: cfg.ApplicationID,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: cfg.IdentityURL + "/oauth/device/code",
			TokenURL:      cfg.IdentityURL + "/oauth/token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		Scopes: []string{"openid", "profile", "email"},
	}
}

// DeviceAuthConfig is the client-bound form of the package function.
func (c *Client) DeviceAuthConfig() *oauth2.Config {
	return DeviceAuthConfig(c.cfg)
}

// Init completes the identity handshake: it trades an identity access token for a session
// cookie that every later call carries. With SkipIdentity set it does nothing.
func (c *Client) Init(ctx context.Context, tokens oauth2.TokenSource) error {
	if c.cfg.SkipIdentity {
		return nil
	}
	if tokens == nil {
		return fmt.Errorf("filez init: no identity token source")
	}

	token, err := tokens.Token()
	if err != nil {
		return fmt.Errorf("filez init: obtaining identity token: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/session/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, _, err := c.send("session", req)
	if err != nil {
		return err
	}
	if !isOK(resp.StatusCode) {
		return &APIError{
			Op:         "session",
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Message:    "creating session",
		}
	}
	return nil
}

// HasSession reports whether the cookie jar holds a session cookie for the server.
func (c *Client) HasSession() bool {
	req, err := http.NewRequest(http.MethodGet, c.cfg.ServerURL+"/", nil)
	if err != nil {
		return false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(req.URL) {
		if cookie.Name == SessionCookieName && cookie.Value != "" {
			return true
		}
	}
	return false
}
