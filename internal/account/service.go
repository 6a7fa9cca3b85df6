package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/richfit/myibot/internal/credential"
)

var codeSpace = big.NewInt(1_000_000)

// Service is the account registry used by the call flow.
type Service struct {
	repo    Repository
	newCode func() (string, error)
	now     func() time.Time
}

// NewService creates an account registry over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, newCode: generateCode, now: time.Now}
}

// Get looks up the account for caller. A missing account is reported through
// the boolean, not as an error.
func (s *Service) Get(ctx context.Context, caller string) (Account, bool, error) {
	acct, err := s.repo.FindByCaller(ctx, caller)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}
	return acct, true, nil
}

// VerifyPIN reports whether pin matches the stored credential for caller.
// It is false when caller has no account.
func (s *Service) VerifyPIN(ctx context.Context, caller, pin string) (bool, error) {
	acct, ok, err := s.Get(ctx, caller)
	if err != nil || !ok {
		return false, err
	}
	return credential.Verify(pin, caller, acct.PINHash), nil
}

// Create registers caller with memberID and pin, replacing any previous
// registration, and returns a fresh confirmation code. Inputs must already be
// validated. Every call issues a new code, so callers must invoke it at most
// once per completed registration.
func (s *Service) Create(ctx context.Context, caller, memberID, pin string) (string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	acct := Account{
		Caller:           caller,
		MemberID:         memberID,
		PINHash:          credential.Hash(pin, caller),
		ConfirmationCode: code,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, acct); err != nil {
		return "", err
	}
	return code, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", ConfirmationCodeLength, n.Int64()), nil
}
