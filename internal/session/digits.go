package session

import "github.com/richfit/myibot/internal/account"

const (
	memberIDLength         = account.MemberIDLength
	pinLength              = account.PINLength
	confirmationCodeLength = account.ConfirmationCodeLength
)

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isDigitsOfLength(s string, n int) bool {
	return len(s) == n && IsDigits(s)
}
