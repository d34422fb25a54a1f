package postgrest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
)

// Authenticator signs users in and up against the GoTrue endpoints of the backend.
type Authenticator struct {
	client *Client
}

var _ user.Authenticator = (*Authenticator)(nil)

func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	// sign-up answers the bare user when email confirmation is on
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s session) identity() user.Identity {
	ident := user.Identity{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
	if ident.ExpiresAt == 0 && s.ExpiresIn > 0 {
		ident.ExpiresAt = core.NowFunc().Unix() + s.ExpiresIn
	}
	if ident.UserID == "" {
		ident.UserID, ident.Email = s.ID, s.Email
	}
	return ident
}

func (a *Authenticator) post(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: a.client.baseURL + authPath + path,
		Headers: a.client.headers(ctx),
		Body:    body,
	}
	return a.client.send(ctx, req, dest)
}

func (a *Authenticator) SignIn(ctx context.Context, email, password string) (user.Identity, error) {
	var s session
	err := a.post(ctx, "token?grant_type=password", map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		var be core.BackendError
		if errors.As(err, &be) && (be.Status == http.StatusBadRequest || be.Status == http.StatusUnauthorized) {
			return user.Identity{}, user.ErrInvalidCredentials
		}
		return user.Identity{}, errors.Wrap(err, "requesting token")
	}
	return s.identity(), nil
}

func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (user.Identity, error) {
	var s session
	err := a.post(ctx, "token?grant_type=refresh_token", map[string]string{"refresh_token": refreshToken}, &s)
	if err != nil {
		var be core.BackendError
		if errors.As(err, &be) && (be.Status == http.StatusBadRequest || be.Status == http.StatusUnauthorized) {
			return user.Identity{}, user.ErrInvalidCredentials
		}
		return user.Identity{}, errors.Wrap(err, "refreshing token")
	}
	return s.identity(), nil
}

func (a *Authenticator) SignUp(ctx context.Context, email, password string, meta map[string]string) (user.Identity, error) {
	payload := map[string]interface{}{"email": email, "password": password, "data": meta}
	var s session
	if err := a.post(ctx, "signup", payload, &s); err != nil {
		var be core.BackendError
		if errors.As(err, &be) && strings.Contains(strings.ToLower(be.Message), "already registered") {
			return user.Identity{}, user.ErrAccountExists
		}
		return user.Identity{}, errors.Wrap(err, "signing up")
	}
	ident := s.identity()
	if ident.UserID == "" {
		return ident, errors.New("backend answered sign-up without a user")
	}
	return ident, nil
}

func (a *Authenticator) SignOut(ctx context.Context, accessToken string) error {
	return errors.Wrap(a.post(core.WithAccessToken(ctx, accessToken), "logout", struct{}{}, nil), "signing out")
}

func (a *Authenticator) ResetPassword(context.Context, string, string) error {
	return user.ErrNotSupported
}
