package auth

import "context"

// Identity is the per-request authentication outcome. It is created fresh by
// the auth gate for every inbound request and discarded with the request.
// The zero value is an unauthenticated identity.
//
// The gate never rejects a request itself: a failed token check produces an
// unauthenticated Identity whose reason is kept for logging only and never
// shown to the client.
type Identity struct {
	userID        string
	authenticated bool
	reason        string
}

// Authenticated builds an identity for a verified user.
func Authenticated(userID string) Identity {
	return Identity{userID: userID, authenticated: true}
}

// Unauthenticated builds an anonymous identity, recording why authentication
// did not happen (missing header, expired token, ...).
func Unauthenticated(reason string) Identity {
	return Identity{reason: reason}
}

func (i Identity) IsAuthenticated() bool { return i.authenticated }

// UserID returns the verified user id, or "" for anonymous requests.
func (i Identity) UserID() string { return i.userID }

// Reason reports why the identity is unauthenticated. Empty for
// authenticated identities.
func (i Identity) Reason() string { return i.reason }

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity attaches the identity to the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity set by the auth gate. Requests
// that never passed the gate resolve to the zero (unauthenticated) identity.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}
