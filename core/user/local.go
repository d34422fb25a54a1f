package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/schoolhub/core"
)

const AccountsTable = "accounts"

// LocalAccount is a row of the accounts table, used when the app owns its user store.
type LocalAccount struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"password_hash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastLogin    null.Time `db:"last_login" json:"last_login"`
}

func (a *LocalAccount) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

func (a *LocalAccount) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(pwd))
}

// LocalAuthenticator authenticates against bcrypt hashes kept in the accounts table of a core.Store.
// Sessions are stateless: the access token is the account ID.
type LocalAuthenticator struct {
	store core.Store
}

var _ Authenticator = (*LocalAuthenticator)(nil)

func NewLocalAuthenticator(store core.Store) *LocalAuthenticator {
	return &LocalAuthenticator{store: store}
}

func (la *LocalAuthenticator) get(ctx context.Context, email string) (LocalAccount, error) {
	var acc LocalAccount
	err := la.store.Get(ctx, AccountsTable, core.Where(core.Eq("email", core.CleanString(email, true))), &acc)
	return acc, err
}

func (la *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (Identity, error) {
	acc, err := la.get(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "getting account")
	}
	if err := acc.CheckPassword(password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	patch := map[string]interface{}{"last_login": core.NowFunc().UTC()}
	if err := la.store.Update(ctx, AccountsTable, []core.Filter{core.Eq("id", acc.ID)}, patch, nil); err != nil {
		return Identity{}, errors.Wrap(err, "setting last login")
	}
	return Identity{UserID: acc.ID, Email: acc.Email, AccessToken: acc.ID}, nil
}

func (la *LocalAuthenticator) SignUp(ctx context.Context, email, password string, _ map[string]string) (Identity, error) {
	email = core.CleanString(email, true /* lower */)
	if _, err := la.get(ctx, email); err == nil {
		return Identity{}, ErrAccountExists
	} else if !core.IsNotFound(err) {
		return Identity{}, errors.Wrap(err, "getting account")
	}

	acc := LocalAccount{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: core.NowFunc().UTC(),
	}
	if err := acc.SetPassword(password); err != nil {
		return Identity{}, errors.Wrap(err, "hashing password")
	}
	if err := la.store.Insert(ctx, AccountsTable, acc, nil); err != nil {
		return Identity{}, errors.Wrap(err, "inserting account")
	}
	return Identity{UserID: acc.ID, Email: acc.Email, AccessToken: acc.ID}, nil
}

func (la *LocalAuthenticator) SignOut(context.Context, string) error {
	return nil
}

// Refresh is not needed: local access tokens do not expire.
func (la *LocalAuthenticator) Refresh(context.Context, string) (Identity, error) {
	return Identity{}, ErrNotSupported
}

func (la *LocalAuthenticator) ResetPassword(ctx context.Context, email, password string) error {
	acc, err := la.get(ctx, email)
	if err != nil {
		return errors.Wrap(err, "getting account")
	}
	if err := acc.SetPassword(password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	patch := map[string]interface{}{"password_hash": acc.PasswordHash}
	return la.store.Update(ctx, AccountsTable, []core.Filter{core.Eq("id", acc.ID)}, patch, nil)
}
