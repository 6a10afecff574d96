package security

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsStrongPassword requires at least one ASCII lowercase letter, one ASCII
// uppercase letter and one ASCII digit. Other characters are allowed but do
// not count. Length is checked separately by the min rule.
func IsStrongPassword(plain string) bool {
	var lower, upper, digit bool

	for i := 0; i < len(plain); i++ {
		switch c := plain[i]; {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}

	return lower && upper && digit
}
