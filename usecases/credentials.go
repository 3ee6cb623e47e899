package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"safr-server/auth"
	"safr-server/db"
	"safr-server/entities"
	"safr-server/logging"
	"safr-server/metrics"
	"safr-server/repositories"

	"gorm.io/gorm"
)

// RegisterInput is a new account. Email is optional.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccessToken is the result of a successful login.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// CredentialStore registers users, checks passwords and issues/verifies bearer tokens.
type CredentialStore struct {
	db         db.Database
	users      repositories.UserRepository
	issuer     *auth.Issuer
	bcryptCost int
}

func NewCredentialStore(database db.Database, users repositories.UserRepository, issuer *auth.Issuer, bcryptCost int) *CredentialStore {
	return &CredentialStore{
		db:         database,
		users:      users,
		issuer:     issuer,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user, failing with ErrConflict when the username
// (case-insensitively) or email is taken.
func (cs *CredentialStore) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, newError(ErrValidation, "username is required")
	}
	if in.Password == "" {
		return nil, newError(ErrValidation, "password is required")
	}

	hashed, err := auth.HashPassword(in.Password, cs.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, newError(ErrValidation, "password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if err != nil {
		return nil, err
	}

	user := &entities.User{Username: username, HashedPassword: hashed}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = &email
	}

	err = cs.db.Transaction(ctx, func(tx *gorm.DB) error {
		users := cs.users.WithTx(tx)

		taken, err := users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return newError(ErrConflict, "username already taken")
		}
		if user.Email != nil {
			taken, err := users.ExistsByEmail(ctx, *user.Email)
			if err != nil {
				return err
			}
			if taken {
				return newError(ErrConflict, "email already registered")
			}
		}

		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return newError(ErrConflict, "username or email already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Authenticate checks the password and issues an access token.
func (cs *CredentialStore) Authenticate(ctx context.Context, username, password string) (*AccessToken, error) {
	user, err := cs.users.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, newError(ErrUnauthorized, "incorrect username or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.HashedPassword, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, newError(ErrUnauthorized, "incorrect username or password")
	}

	signed, expiresAt, err := cs.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &AccessToken{AccessToken: signed, TokenType: auth.TokenType, ExpiresAt: expiresAt}, nil
}

// Verify resolves a bearer token to its user. Tokens for users that no longer
// exist are rejected.
func (cs *CredentialStore) Verify(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, newError(ErrUnauthorized, "could not validate credentials")
	}
	claims, err := cs.issuer.Parse(token)
	if err != nil {
		logging.Debug().Err(err).Msg("token rejected")
		return nil, newError(ErrUnauthorized, "could not validate credentials")
	}

	user, err := cs.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "could not validate credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.UsernameNormalized != entities.NormalizeUsername(claims.Subject) {
		return nil, newError(ErrUnauthorized, "could not validate credentials")
	}
	return user, nil
}
