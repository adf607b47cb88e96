package auth

import (
	"net/mail"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

func newTokenID() string {
	return uuid.NewString()
}

// deterministicUserID derives a stable UUID from an email address
func deterministicUserID(email string) (uuid.UUID, error) {
	return hashid.NewUUID(email)
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
