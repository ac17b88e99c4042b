// internal/common/backend/auth.go
package backend

import (
	"context"
	"fmt"
	"net/http"

	"cif-onboarding/internal/models"
)

// Login authenticates an advisor and stores the returned tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	var tokens models.TokenResponse
	err := c.doJSON(ctx, request{
		method:    http.MethodPost,
		route:     "/auth/login",
		path:      "/auth/login",
		body:      models.LoginRequest{Email: email, MotDePasse: password},
		anonymous: true,
	}, &tokens)
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("login response carries no access token")
	}

	pair := TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if err := c.tokens.Save(ctx, pair); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"email": email}
	if tokens.User != nil {
		fields["userId"] = tokens.User.ID
	}
	c.log.Info("logged in to backend", fields)
	return &tokens, nil
}

// Logout forgets the session locally. The backend keeps no server side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}

// EnsureSession logs in with the given credentials unless a session is stored.
func (c *Client) EnsureSession(ctx context.Context, email, password string) error {
	pair, err := c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if pair.AccessToken != "" || email == "" {
		return nil
	}
	_, err = c.Login(ctx, email, password)
	return err
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, request{method: http.MethodGet, route: "/users/me", path: "/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
