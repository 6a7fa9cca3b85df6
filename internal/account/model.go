package account

import "time"

const (
	// MemberIDLength is the number of digits in a member id.
	MemberIDLength = 8
	// PINLength is the number of digits in a PIN.
	PINLength = 3
	// ConfirmationCodeLength is the number of digits in a confirmation code.
	ConfirmationCodeLength = 6
)

// Account anchors a caller identity and its credential.
type Account struct {
	Caller           string
	MemberID         string
	PINHash          string
	ConfirmationCode string
	CreatedAt        time.Time
}
