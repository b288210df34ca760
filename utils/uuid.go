package utils

import "github.com/google/uuid"

// GetToken mints a random identifier, used for job IDs and lock tokens.
func GetToken() string {
	return uuid.NewString()
}
