package utils

import "github.com/google/uuid"

// IsUUID accepts only the canonical 36 character form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
