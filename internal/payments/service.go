package payments

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"

    "github.com/richfit/myibot/internal/notification"
)

// Service records confirmed transfer requests and notifies downstream systems.
type Service struct {
    repo     Repository
    notifier notification.Notifier
    now      func() time.Time
}

// NewService constructs a payment service.
func NewService(repo Repository, notifier notification.Notifier) *Service {
    return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// SubmitInput captures a transfer confirmed by the caller.
type SubmitInput struct {
    ClientTxID    string
    CallID        string
    Caller        string
    AmountCents   int64
    RecipientCode string
}

// Submit records the transfer request. A replay of the same ClientTxID
// returns ErrDuplicateTransaction without notifying again.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (TransferRequest, error) {
    if input.AmountCents < 0 {
        return TransferRequest{}, fmt.Errorf("amount must not be negative")
    }
    if input.RecipientCode == "" {
        return TransferRequest{}, fmt.Errorf("recipient code is required")
    }
    if input.ClientTxID == "" {
        input.ClientTxID = uuid.New().String()
    }

    req := TransferRequest{
        ID:            uuid.New().String(),
        ClientTxID:    input.ClientTxID,
        CallID:        input.CallID,
        Caller:        input.Caller,
        AmountCents:   input.AmountCents,
        RecipientCode: input.RecipientCode,
        Status:        StatusSubmitted,
        CreatedAt:     s.now().UTC(),
    }

    if err := s.repo.Insert(ctx, req); err != nil {
        if errors.Is(err, ErrDuplicateTransaction) {
            return TransferRequest{}, err
        }
        return TransferRequest{}, fmt.Errorf("record transfer: %w", err)
    }

    if s.notifier != nil {
        _ = s.notifier.Send(ctx, notification.Message{
            Kind:        notification.KindTransferSubmitted,
            Destination: input.RecipientCode,
            Body:        fmt.Sprintf("Transfer of %d cents requested by %s", input.AmountCents, input.Caller),
        })
    }

    return req, nil
}
