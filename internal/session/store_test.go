package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richfit/myibot/internal/logging"
)

func newTestStore() *Store {
	return NewStore(NewMemoryRepository(0), logging.Discard())
}

func TestGetMissingSession(t *testing.T) {
	store := newTestStore()
	sess, ok, err := store.Get(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || sess.Authed || sess.Step != nil || sess.Version != 0 {
		t.Fatalf("expected empty absent session, got %+v ok=%v", sess, ok)
	}
}

func TestFamilyChangeDropsStepFields(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if _, err := store.MarkAuthed(ctx, "CA1", "+15550001111", AnyVersion); err != nil {
		t.Fatalf("mark authed: %v", err)
	}
	if _, err := store.SetPartial(ctx, "CA1", TransferRecipient{AmountCents: 2500}, AnyVersion); err != nil {
		t.Fatalf("set recipient: %v", err)
	}
	if _, err := store.SetPartial(ctx, "CA1", TransferConfirm{RecipientCode: "12345678"}, AnyVersion); err != nil {
		t.Fatalf("set confirm: %v", err)
	}

	sess, err := store.SetPartial(ctx, "CA1", RegisterPIN{MemberID: "12345678"}, AnyVersion)
	if err != nil {
		t.Fatalf("set register: %v", err)
	}
	if !sess.Authed || sess.Caller != "+15550001111" {
		t.Fatalf("expected auth binding to survive, got %+v", sess)
	}
	if got, ok := sess.Step.(RegisterPIN); !ok || got.MemberID != "12345678" {
		t.Fatalf("expected only the register step, got %#v", sess.Step)
	}

	loaded, _, _ := store.Get(ctx, "CA1")
	if _, ok := loaded.Step.(RegisterPIN); !ok {
		t.Fatalf("expected persisted register step, got %#v", loaded.Step)
	}
}

func TestSameFamilyCarriesEarlierFields(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if _, err := store.SetPartial(ctx, "CA1", TransferAmount{}, AnyVersion); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if _, err := store.SetPartial(ctx, "CA1", TransferRecipient{AmountCents: 2500}, AnyVersion); err != nil {
		t.Fatalf("set recipient: %v", err)
	}
	sess, err := store.SetPartial(ctx, "CA1", TransferConfirm{RecipientCode: "12345678"}, AnyVersion)
	if err != nil {
		t.Fatalf("set confirm: %v", err)
	}
	want := TransferConfirm{AmountCents: 2500, RecipientCode: "12345678"}
	if sess.Step != want {
		t.Fatalf("expected %#v, got %#v", want, sess.Step)
	}

	if _, err := store.SetPartial(ctx, "CA2", RegisterPIN{MemberID: "87654321"}, AnyVersion); err != nil {
		t.Fatalf("set register pin: %v", err)
	}
	sess, err = store.SetPartial(ctx, "CA2", RegisterPINConfirm{PIN: "222"}, AnyVersion)
	if err != nil {
		t.Fatalf("set register confirm: %v", err)
	}
	if sess.Step != (RegisterPINConfirm{MemberID: "87654321", PIN: "222"}) {
		t.Fatalf("expected member id to carry, got %#v", sess.Step)
	}
}

func TestAuthSurvivesPartialUpdates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if _, err := store.MarkAuthed(ctx, "CA1", "+15550001111", AnyVersion); err != nil {
		t.Fatalf("mark authed: %v", err)
	}
	steps := []Step{
		TransferAmount{},
		TransferRecipient{AmountCents: 100},
		RegisterID{},
		RegisterPIN{MemberID: "12345678"},
		TransferAmount{},
	}
	for _, step := range steps {
		sess, err := store.SetPartial(ctx, "CA1", step, AnyVersion)
		if err != nil {
			t.Fatalf("set %s: %v", step.Name(), err)
		}
		if !sess.Authed || sess.Caller != "+15550001111" {
			t.Fatalf("lost auth after %s: %+v", step.Name(), sess)
		}
	}
}

func TestClearFlowKeepsBinding(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if _, err := store.ClearFlow(ctx, "missing", AnyVersion); err != nil {
		t.Fatalf("clear missing: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "missing"); ok {
		t.Fatalf("clearing a missing session must not create it")
	}

	store.MarkAuthed(ctx, "CA1", "+15550001111", AnyVersion)
	store.SetPartial(ctx, "CA1", TransferRecipient{AmountCents: 900}, AnyVersion)

	sess, err := store.ClearFlow(ctx, "CA1", AnyVersion)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if sess.Step != nil || !sess.Authed || sess.Caller != "+15550001111" {
		t.Fatalf("unexpected cleared session %+v", sess)
	}
}

func TestResetToStartsFreshStep(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.SetPartial(ctx, "CA1", RegisterPINConfirm{MemberID: "12345678", PIN: "222"}, AnyVersion)
	sess, err := store.ResetTo(ctx, "CA1", RegisterID{}, AnyVersion)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if sess.Step != (RegisterID{}) {
		t.Fatalf("expected register_id, got %#v", sess.Step)
	}
}

func TestVersionMismatchIsStale(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.SetPartial(ctx, "CA1", TransferAmount{}, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}
	if _, err := store.SetPartial(ctx, "CA1", TransferRecipient{AmountCents: 1}, first.Version); err != nil {
		t.Fatalf("conditional write: %v", err)
	}
	// a second request that read the same version loses
	_, err = store.SetPartial(ctx, "CA1", TransferRecipient{AmountCents: 2}, first.Version)
	if !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected stale session, got %v", err)
	}
	if _, err := store.Claim(ctx, "CA1", first.Version); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected stale claim, got %v", err)
	}

	sess, _, _ := store.Get(ctx, "CA1")
	if sess.Step != (TransferRecipient{AmountCents: 1}) {
		t.Fatalf("stale write must not land, got %#v", sess.Step)
	}
}

func TestGetDiscardsUnreadablePayload(t *testing.T) {
	repo := NewMemoryRepository(0)
	store := NewStore(repo, logging.Discard())
	ctx := context.Background()

	repo.Update(ctx, "CA1", func([]byte, bool) ([]byte, error) { return []byte("{not json"), nil })

	if _, ok, err := store.Get(ctx, "CA1"); err != nil || ok {
		t.Fatalf("expected absent session, ok=%v err=%v", ok, err)
	}
	if _, err := repo.Load(ctx, "CA1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected payload to be deleted, got %v", err)
	}
}

func TestGetDropsMalformedStep(t *testing.T) {
	repo := NewMemoryRepository(0)
	store := NewStore(repo, logging.Discard())
	ctx := context.Background()

	payload := `{"authed":true,"caller":"+1555","version":4,"step":"transfer_confirm","data":{"amount_cents":100,"member_id":"12345678"}}`
	repo.Update(ctx, "CA1", func([]byte, bool) ([]byte, error) { return []byte(payload), nil })

	sess, ok, err := store.Get(ctx, "CA1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if sess.Step != nil || !sess.Authed || sess.Version != 4 {
		t.Fatalf("expected binding without step, got %+v", sess)
	}
}

func TestMemoryRepositoryExpiry(t *testing.T) {
	repo := NewMemoryRepository(time.Minute).(*memoryRepository)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	store := NewStore(repo, logging.Discard())
	ctx := context.Background()

	store.MarkAuthed(ctx, "CA1", "+1555", AnyVersion)
	now = now.Add(2 * time.Minute)

	if _, ok, _ := store.Get(ctx, "CA1"); ok {
		t.Fatalf("expected session to expire")
	}
}
