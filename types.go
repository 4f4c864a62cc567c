package auth

import (
	"context"
	"time"
)

// Account is the account record as seen by the auth subsystem. The token
// pair itself is not part of this struct — it lives in the session store,
// keyed by ID, and is owned exclusively by the Engine.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// TokenPair is one account's access+refresh credential pair. At most one
// pair per account validates at any time.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	DisplayName string
	Email       string
	Password    string
}

// CreateAccountInput is the input for [AccountProvider.Create]. The password
// arrives pre-hashed; providers never see plaintext.
type CreateAccountInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// AccountProvider is the interface callers implement to connect the Engine
// to their account database. Lookups return [ErrAccountNotFound] for unknown
// accounts; Create returns [ErrAccountExists] for duplicate emails.
type AccountProvider interface {
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, in CreateAccountInput) (Account, error)
}
