package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
)

const (
	sessionCookie     = "schoolhub_session"
	contextAccountKey = "account"
	sessionAudience   = "schoolhub-portal"

	// backend access tokens are renewed this long before they expire
	backendTokenLeeway = time.Minute
)

// Claims represents the session of a signed-in user, carried by a signed cookie.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Role         string `json:"role,omitempty"`
	// AccessToken is the backend session of the user, forwarded on every store call.
	AccessToken    string `json:"access_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	TokenExpiresAt int64  `json:"token_exp,omitempty"`
}

func (c Claims) Account() user.Account {
	return user.Account{
		ID:          c.Subject,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Role:        c.Role,
		AccessToken: c.AccessToken,

		RefreshToken:   c.RefreshToken,
		TokenExpiresAt: c.TokenExpiresAt,
	}
}

func (s *Server) newClaims(acc user.Account, origIat ...int64) *Claims {
	now := core.NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.deps.Conf.AppName,
			Subject:   acc.ID,
			Audience:  sessionAudience,
			ExpiresAt: now.Add(s.deps.Conf.Server.SessionExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acc.Email,
		FirstName:    acc.FirstName,
		LastName:     acc.LastName,
		Role:         acc.Role,
		AccessToken:  acc.AccessToken,

		RefreshToken:   acc.RefreshToken,
		TokenExpiresAt: acc.TokenExpiresAt,
	}
}

// GenerateToken signs the claims with HS256.
func (s *Server) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(s.deps.Conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (s *Server) parseToken(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(s.deps.Conf.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !claims.VerifyAudience(sessionAudience, true) {
		return nil, errors.New("invalid audience")
	}
	return claims, nil
}

func (s *Server) startSession(ctx echo.Context, acc user.Account, origIat ...int64) error {
	claims := s.newClaims(acc, origIat...)
	token, err := s.GenerateToken(claims)
	if err != nil {
		return err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(claims.ExpiresAt, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) endSession(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// authenticated loads the session; visitors without one are sent to the sign-in page.
// Sessions past half of their lifetime are re-issued until the refresh window of the original sign-in closes.
// An expiring backend access token is renewed with the refresh token; the user signs in again when that fails.
func (s *Server) authenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			return s.toSignIn(ctx)
		}
		claims, err := s.parseToken(cookie.Value)
		if err != nil {
			s.endSession(ctx)
			return s.toSignIn(ctx)
		}

		acc := claims.Account()
		now := core.NowFunc()
		halfLife := time.Unix(claims.IssuedAt, 0).Add(s.deps.Conf.Server.SessionExpirationDelta / 2)
		refreshEnd := time.Unix(claims.OrigIssuedAt, 0).Add(s.deps.Conf.Server.SessionRefreshDelta)
		reissue := now.After(halfLife) && now.Before(refreshEnd)

		if acc.TokenExpired(now, backendTokenLeeway) {
			refreshed, err := s.deps.Users.Refresh(ctx.Request().Context(), acc)
			if err != nil {
				s.deps.Logger.Info(fmt.Sprintf("backend session expired: %v", err), acc)
				s.endSession(ctx)
				return s.toSignIn(ctx)
			}
			acc, reissue = refreshed, true
		}
		if reissue {
			if err := s.startSession(ctx, acc, claims.OrigIssuedAt); err != nil {
				return errors.Wrap(err, "refreshing session")
			}
		}

		ctx.Set(contextAccountKey, acc)
		req := ctx.Request()
		reqCtx := core.WithUserID(core.WithAccessToken(req.Context(), acc.AccessToken), acc.ID)
		ctx.SetRequest(req.WithContext(reqCtx))
		return next(ctx)
	}
}

func (s *Server) toSignIn(ctx echo.Context) error {
	if wantsJSON(ctx) {
		return errUnauthorized
	}
	return ctx.Redirect(http.StatusSeeOther, "/auth")
}

func contextAccount(ctx echo.Context) (user.Account, bool) {
	acc, ok := ctx.Get(contextAccountKey).(user.Account)
	return acc, ok
}

// account is the signed-in user of a route guarded by authenticated.
func account(ctx echo.Context) user.Account {
	acc, _ := contextAccount(ctx)
	return acc
}
