package auth

import "github.com/dmitrijs2005/feedstream/internal/common"

// RequireAuthenticated fails with common.ErrorUnauthorized unless the
// identity belongs to a verified user. Called at the top of every mutating or
// privacy-sensitive operation.
func RequireAuthenticated(id Identity) error {
	if !id.IsAuthenticated() {
		return common.ErrorUnauthorized
	}
	return nil
}

// RequireOwner checks authentication first, then compares the caller against
// the resource's recorded creator. A mismatch fails with
// common.ErrorForbidden. Creator ids are compared in canonical string form.
func RequireOwner(id Identity, creatorID string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if id.UserID() != creatorID {
		return common.ErrorForbidden
	}
	return nil
}
