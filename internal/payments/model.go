package payments

import "time"

// StatusSubmitted marks a transfer request accepted for downstream processing.
const StatusSubmitted = "submitted"

// TransferRequest is a confirmed transfer instruction captured over the phone.
// Recording it does not move funds.
type TransferRequest struct {
	ID            string
	ClientTxID    string
	CallID        string
	Caller        string
	AmountCents   int64
	RecipientCode string
	Status        string
	CreatedAt     time.Time
}
