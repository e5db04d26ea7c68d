package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	return NewService(repo), repo
}

func TestEnsureWalletIdempotent(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	w1, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF")
	if err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	w2, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF")
	if err != nil {
		t.Fatalf("EnsureWallet second call: %v", err)
	}
	if w1.ID != w2.ID {
		t.Fatalf("expected same wallet, got %s and %s", w1.ID, w2.ID)
	}
}

func TestBalanceMatchesLedgerSum(t *testing.T) {
	s, repo := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 50_000, "p1", "k1", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := s.Debit(ctx, ScopeTenant, "t1", EntryTypeRefundDebit, 12_000, "r1", "k2", ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	bal, err := s.Balance(ctx, ScopeTenant, "t1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.BalanceMinor != 38_000 {
		t.Fatalf("balance = %d, want 38000", bal.BalanceMinor)
	}
	sum, err := repo.SumEntries(ctx, ScopeTenant, "t1")
	if err != nil {
		t.Fatalf("SumEntries: %v", err)
	}
	if sum != bal.BalanceMinor {
		t.Fatalf("ledger sum %d != balance %d", sum, bal.BalanceMinor)
	}

	rec, err := s.Reconcile(ctx, ScopeTenant, "t1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !rec.Consistent {
		t.Fatalf("reconcile inconsistent: cached %d ledger %d", rec.CachedMinor, rec.LedgerSum)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 1_000, "p1", "k1", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	_, err := s.Debit(ctx, ScopeTenant, "t1", EntryTypeRefundDebit, 2_000, "r1", "k2", "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Failed debit must leave no entries behind.
	bal, _ := s.Balance(ctx, ScopeTenant, "t1")
	if bal.BalanceMinor != 1_000 {
		t.Fatalf("balance changed after failed debit: %d", bal.BalanceMinor)
	}
}

func TestIdempotentReplayDoesNotDoubleApply(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 10_000, "p1", "same-key", ""); err != nil {
			t.Fatalf("Credit replay %d: %v", i, err)
		}
	}
	bal, _ := s.Balance(ctx, ScopeTenant, "t1")
	if bal.BalanceMinor != 10_000 {
		t.Fatalf("balance = %d after replays, want 10000", bal.BalanceMinor)
	}
	entries, _ := s.Entries(ctx, ScopeTenant, "t1", 50, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestConcurrentDebitsOnlyOneWins(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 50_000, "p1", "seed", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	// Two 40k debits race against a 50k balance. Exactly one must win.
	const amount = 40_000
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Debit(ctx, ScopeTenant, "t1", EntryTypePayoutDebit, amount, "race", "race-"+string(rune('a'+i)), "")
		}(i)
	}
	wg.Wait()

	var okCount, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || insufficient != 1 {
		t.Fatalf("want exactly one winner, got ok=%d insufficient=%d", okCount, insufficient)
	}
	bal, _ := s.Balance(ctx, ScopeTenant, "t1")
	if bal.BalanceMinor != 10_000 {
		t.Fatalf("balance = %d, want 10000", bal.BalanceMinor)
	}
}

func TestApplySplitAtomic(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.ApplySplit(ctx, ScopeTenant, "t1", "split-1", []EntrySpec{
		{Type: EntryTypePaymentCredit, AmountMinor: 100_000, ExternalRef: "p1"},
		{Type: EntryTypePlatformFee, AmountMinor: -2_500, ExternalRef: "p1"},
	}); err != nil {
		t.Fatalf("ApplySplit: %v", err)
	}

	bal, _ := s.Balance(ctx, ScopeTenant, "t1")
	if bal.BalanceMinor != 97_500 {
		t.Fatalf("balance = %d, want 97500", bal.BalanceMinor)
	}
	entries, _ := s.Entries(ctx, ScopeTenant, "t1", 50, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// A net-negative split against an empty wallet must write nothing.
	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t2", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	_, err := s.ApplySplit(ctx, ScopeTenant, "t2", "split-2", []EntrySpec{
		{Type: EntryTypePaymentCredit, AmountMinor: 1_000, ExternalRef: "p2"},
		{Type: EntryTypePlatformFee, AmountMinor: -5_000, ExternalRef: "p2"},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	entries, _ = s.Entries(ctx, ScopeTenant, "t2", 50, 0)
	if len(entries) != 0 {
		t.Fatalf("partial split observable: %d entries", len(entries))
	}
}

func TestLockReleaseDebitLocked(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 50_000, "p1", "seed", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	// Locking more than the balance is refused.
	if _, err := s.Lock(ctx, ScopeTenant, "t1", 60_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	bal, err := s.Lock(ctx, ScopeTenant, "t1", 30_000)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if bal.LockedMinor != 30_000 || bal.AvailableMinor != 20_000 {
		t.Fatalf("after lock: locked=%d available=%d", bal.LockedMinor, bal.AvailableMinor)
	}

	// A debit beyond the remaining available is refused even though the
	// raw balance would cover it.
	if _, err := s.Debit(ctx, ScopeTenant, "t1", EntryTypeRefundDebit, 25_000, "r1", "k1", ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	bal, err = s.DebitLocked(ctx, ScopeTenant, "t1", EntryTypePayoutDebit, 30_000, 500, "po1", "payout:po1:paid")
	if err != nil {
		t.Fatalf("DebitLocked: %v", err)
	}
	if bal.BalanceMinor != 19_500 || bal.LockedMinor != 0 {
		t.Fatalf("after debit locked: balance=%d locked=%d", bal.BalanceMinor, bal.LockedMinor)
	}

	rec, _ := s.Reconcile(ctx, ScopeTenant, "t1")
	if !rec.Consistent {
		t.Fatalf("ledger drifted: cached %d sum %d", rec.CachedMinor, rec.LedgerSum)
	}
}

func TestReleaseRestoresAvailable(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.EnsureWallet(ctx, ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := s.Credit(ctx, ScopeTenant, "t1", EntryTypePaymentCredit, 20_000, "p1", "seed", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := s.Lock(ctx, ScopeTenant, "t1", 20_000); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	bal, err := s.Release(ctx, ScopeTenant, "t1", 20_000)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if bal.AvailableMinor != 20_000 || bal.LockedMinor != 0 {
		t.Fatalf("after release: available=%d locked=%d", bal.AvailableMinor, bal.LockedMinor)
	}
}
