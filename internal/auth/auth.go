package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// UserIDHeader is set by the gateway after it has authenticated the caller.
const UserIDHeader = "X-User-ID"

var ErrUnauthenticated = errors.New("unauthenticated")

// VerifyUser returns the authenticated caller of r.
func VerifyUser(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: no %s header", ErrUnauthenticated, UserIDHeader)
	}

	userID, err := uuid.Parse(raw)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user id", ErrUnauthenticated)
	}

	return userID, nil
}
