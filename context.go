package auth

import "context"

type accountContextKey struct{}

// WithAccount attaches the authenticated account to ctx. The middleware
// guard calls this after a successful Authenticate so downstream handlers
// can resolve the caller without re-verifying anything.
func WithAccount(ctx context.Context, account Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, account)
}

// AccountFromContext returns the account attached by [WithAccount].
func AccountFromContext(ctx context.Context) (Account, bool) {
	if ctx == nil {
		return Account{}, false
	}

	account, ok := ctx.Value(accountContextKey{}).(Account)
	return account, ok
}
