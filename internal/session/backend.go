package session

import (
	"context"
	"net/http"

	"github.com/sajagmathur/mlconsole/internal/client"
)

// remoteBackend authenticates against the console backend's auth endpoints.
type remoteBackend struct {
	api *client.Client
}

// NewRemoteBackend wraps the REST client as a session Backend.
func NewRemoteBackend(api *client.Client) Backend {
	return &remoteBackend{api: api}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (b *remoteBackend) Login(ctx context.Context, email, password string) (string, *User, error) {
	var resp loginResponse
	err := b.api.Post(ctx, "/api/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		switch {
		case client.IsUnauthorized(err):
			return "", nil, &AuthenticationError{Reason: "invalid email or password"}
		case client.IsStatus(err, http.StatusForbidden):
			return "", nil, &AuthenticationError{Reason: "account pending approval"}
		default:
			return "", nil, err
		}
	}
	u := resp.User
	return resp.Token, &u, nil
}

func (b *remoteBackend) Logout(ctx context.Context) error {
	return b.api.Post(ctx, "/api/auth/logout", nil, nil)
}

func (b *remoteBackend) Extend(ctx context.Context) error {
	return b.api.Post(ctx, "/api/auth/extend", nil, nil)
}
