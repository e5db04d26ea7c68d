package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"logistics-payments/internal/audit"
	"logistics-payments/internal/fx"
	"logistics-payments/internal/paymode"
	"logistics-payments/internal/wallet"
)

type fixture struct {
	svc     *Service
	modes   *paymode.Service
	wallets *wallet.Service
	auditor *audit.MemoryRepo
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	auditRepo := audit.NewMemoryRepo()
	auditor := audit.NewService(auditRepo, nil)
	wallets := wallet.NewService(wallet.NewMemoryRepo())
	modes := paymode.NewService(paymode.NewMemoryRepo(), nil, 5*time.Second, auditor)

	svc := NewService(NewMemoryRepo(), modes, wallets, fx.NewStaticConverter(), auditor, cfg, nil)
	return &fixture{svc: svc, modes: modes, wallets: wallets, auditor: auditRepo}
}

func (f *fixture) fund(t *testing.T, tenantID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.wallets.EnsureWallet(ctx, wallet.ScopeTenant, tenantID, "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := f.wallets.Credit(ctx, wallet.ScopeTenant, tenantID, wallet.EntryTypePaymentCredit, amount, "seed", "seed-"+tenantID, ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
}

func validMobileMoney() TargetDetails {
	return TargetDetails{BeneficiaryName: "Awa Diop", PhoneNumber: "+221771234567"}
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t, Config{MinMinor: 1_000})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 500, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"}); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 5_000, Channel: "wire", Details: validMobileMoney(), ActorID: "u1"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for channel, got %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 5_000, Channel: ChannelMobileMoney, Details: TargetDetails{BeneficiaryName: "x", PhoneNumber: "not-a-phone"}, ActorID: "u1"}); !errors.Is(err, ErrBadTarget) {
		t.Fatalf("expected ErrBadTarget, got %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 5_000, Channel: ChannelBankTransfer, Details: TargetDetails{BeneficiaryName: "x", BankName: "CBAO", AccountNumber: "12!"}, ActorID: "u1"}); !errors.Is(err, ErrBadTarget) {
		t.Fatalf("expected ErrBadTarget for account, got %v", err)
	}
}

func TestCashPayoutRequiresPickupLocation(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	for _, ch := range []Channel{ChannelCash, ChannelCheck} {
		_, err := f.svc.Create(ctx, CreateInput{
			TenantID: "t1", AmountMinor: 5_000, Channel: ch,
			Details: TargetDetails{BeneficiaryName: "Awa Diop", PickupNote: "   "},
			ActorID: "u1",
		})
		if !errors.Is(err, ErrBadTarget) {
			t.Fatalf("%s without pickup location: expected ErrBadTarget, got %v", ch, err)
		}
	}

	r, err := f.svc.Create(ctx, CreateInput{
		TenantID: "t1", AmountMinor: 5_000, Channel: ChannelCash,
		Details: TargetDetails{BeneficiaryName: "Awa Diop", PickupNote: "Agence Plateau, Dakar"},
		ActorID: "u1",
	})
	if err != nil {
		t.Fatalf("Create with pickup location: %v", err)
	}
	if r.Details.PickupNote == "" {
		t.Fatalf("pickup note lost: %+v", r.Details)
	}
}

func TestCreateConvertsForeignCurrency(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	// 100 USD cents at the 600 rate lands as 60000 in the wallet currency.
	r, err := f.svc.Create(ctx, CreateInput{
		TenantID: "t1", AmountMinor: 100, Currency: "USD",
		Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.AmountMinor != 60_000 {
		t.Fatalf("amount = %d, want 60000", r.AmountMinor)
	}
	if r.Currency != "XOF" {
		t.Fatalf("currency = %q, want XOF", r.Currency)
	}

	if _, err := f.svc.Create(ctx, CreateInput{
		TenantID: "t1", AmountMinor: 100, Currency: "JPY",
		Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1",
	}); !errors.Is(err, fx.ErrUnsupportedPair) {
		t.Fatalf("expected ErrUnsupportedPair, got %v", err)
	}
}

func TestCreateRejectedInOwnAPIMode(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	if _, err := f.modes.SetMode(ctx, paymode.SetModeInput{TenantID: "t1", Mode: paymode.ModeAPIPropre, ActorID: "admin"}); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	_, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 5_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if !errors.Is(err, ErrPayoutsNotApplicable) {
		t.Fatalf("expected ErrPayoutsNotApplicable, got %v", err)
	}
}

func TestCreateChecksAvailableBalance(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 50_000)
	_, err := f.svc.Create(context.Background(), CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSmallRequestsSkipScreening(t *testing.T) {
	f := newFixture(t, Config{AutoReviewMinor: 100_000})
	f.fund(t, "t1", 500_000)
	ctx := context.Background()

	small, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 50_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create small: %v", err)
	}
	if small.Status != StatusReview {
		t.Fatalf("small request status = %s, want review", small.Status)
	}

	big, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 200_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create big: %v", err)
	}
	if big.Status != StatusPending {
		t.Fatalf("big request status = %s, want pending", big.Status)
	}
}

func TestFullLifecyclePaid(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorScope: "tenant", ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Status != StatusPending {
		t.Fatalf("status = %s", r.Status)
	}

	if r, err = f.svc.Screen(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if r, err = f.svc.Approve(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	bal, _ := f.wallets.Balance(ctx, wallet.ScopeTenant, "t1")
	if bal.LockedMinor != 60_000 || bal.AvailableMinor != 40_000 {
		t.Fatalf("after approve: locked=%d available=%d", bal.LockedMinor, bal.AvailableMinor)
	}

	if r, err = f.svc.MarkPaid(ctx, ReviewInput{ID: r.ID, EvidenceURL: "https://files.example.com/receipt-1.pdf", ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if r.Status != StatusPaid {
		t.Fatalf("status = %s", r.Status)
	}
	if r.PaidAt == nil || r.EvidenceURL == "" {
		t.Fatalf("paid request missing settlement fields: %+v", r)
	}

	bal, _ = f.wallets.Balance(ctx, wallet.ScopeTenant, "t1")
	if bal.BalanceMinor != 40_000 || bal.LockedMinor != 0 {
		t.Fatalf("after paid: balance=%d locked=%d", bal.BalanceMinor, bal.LockedMinor)
	}

	rec, _ := f.wallets.Reconcile(ctx, wallet.ScopeTenant, "t1")
	if !rec.Consistent {
		t.Fatalf("ledger drifted after payout")
	}
}

func TestFailedPayoutReleasesFunds(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r, err = f.svc.Screen(ctx, ReviewInput{ID: r.ID, ActorID: "ops"}); err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if r, err = f.svc.Approve(ctx, ReviewInput{ID: r.ID, ActorID: "ops"}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if r, err = f.svc.MarkFailed(ctx, ReviewInput{ID: r.ID, Reason: "provider timeout", ActorID: "ops"}); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if r.Status != StatusFailed || r.Reason != "provider timeout" {
		t.Fatalf("request: %+v", r)
	}

	bal, _ := f.wallets.Balance(ctx, wallet.ScopeTenant, "t1")
	if bal.BalanceMinor != 100_000 || bal.LockedMinor != 0 {
		t.Fatalf("funds not released: balance=%d locked=%d", bal.BalanceMinor, bal.LockedMinor)
	}
}

func TestInvalidTransitionsRejectedAndAudited(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 100_000)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// pending cannot be paid directly.
	if _, err := f.svc.MarkPaid(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	// pending cannot be approved without screening.
	if _, err := f.svc.Approve(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	if r, err = f.svc.Screen(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if r, err = f.svc.Reject(ctx, ReviewInput{ID: r.ID, Reason: "mismatched beneficiary", ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	// rejected is terminal.
	if _, err := f.svc.Approve(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition from rejected, got %v", err)
	}

	var badState int
	for _, e := range f.auditor.Events() {
		if e.Action == audit.ActionPayoutBadState {
			badState++
		}
	}
	if badState != 3 {
		t.Fatalf("bad-state audit events = %d, want 3", badState)
	}
}

func TestApproveFailsWhenFundsDrained(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 60_000)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 50_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r, err = f.svc.Screen(ctx, ReviewInput{ID: r.ID, ActorID: "ops"}); err != nil {
		t.Fatalf("Screen: %v", err)
	}

	// Another movement drains the wallet between request and approval.
	if _, err := f.wallets.Debit(ctx, wallet.ScopeTenant, "t1", wallet.EntryTypeRefundDebit, 20_000, "r1", "drain", ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	if _, err := f.svc.Approve(ctx, ReviewInput{ID: r.ID, ActorID: "ops"}); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// The request stays in review for a later retry.
	got, err := f.svc.Get(ctx, "t1", r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusReview {
		t.Fatalf("status = %s, want review", got.Status)
	}
}

// staleReadRepo replays an earlier snapshot on the next GetByID,
// standing in for a reviewer acting on a page loaded before a colleague
// moved the request.
type staleReadRepo struct {
	*MemoryRepo
	stale *Request
}

func (r *staleReadRepo) GetByID(ctx context.Context, id string) (Request, bool, error) {
	if r.stale != nil && r.stale.ID == id {
		req := *r.stale
		r.stale = nil
		return req, true, nil
	}
	return r.MemoryRepo.GetByID(ctx, id)
}

func TestConcurrentApproveLocksFundsOnce(t *testing.T) {
	auditRepo := audit.NewMemoryRepo()
	auditor := audit.NewService(auditRepo, nil)
	wallets := wallet.NewService(wallet.NewMemoryRepo())
	modes := paymode.NewService(paymode.NewMemoryRepo(), nil, 5*time.Second, auditor)
	repo := &staleReadRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo, modes, wallets, fx.NewStaticConverter(), auditor, Config{}, nil)
	ctx := context.Background()

	if _, err := wallets.EnsureWallet(ctx, wallet.ScopeTenant, "t1", "XOF"); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := wallets.Credit(ctx, wallet.ScopeTenant, "t1", wallet.EntryTypePaymentCredit, 200_000, "seed", "seed-t1", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	r, err := svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	r, err = svc.Screen(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops"})
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}

	if _, err := svc.Approve(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops-a"}); err != nil {
		t.Fatalf("first Approve: %v", err)
	}

	// The second reviewer still sees the request in review and races the
	// same approval. The status write must lose and the extra lock must
	// be released.
	snapshot := r
	repo.stale = &snapshot
	if _, err := svc.Approve(ctx, ReviewInput{ID: r.ID, ActorScope: "owner", ActorID: "ops-b"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("second Approve: expected ErrInvalidStateTransition, got %v", err)
	}

	bal, err := wallets.Balance(ctx, wallet.ScopeTenant, "t1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.LockedMinor != 60_000 || bal.AvailableMinor != 140_000 {
		t.Fatalf("double lock: locked=%d available=%d", bal.LockedMinor, bal.AvailableMinor)
	}
	got, err := svc.Get(ctx, "t1", r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestListByTenantStatusFilter(t *testing.T) {
	f := newFixture(t, Config{})
	f.fund(t, "t1", 500_000)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 50_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{TenantID: "t1", AmountMinor: 60_000, Channel: ChannelMobileMoney, Details: validMobileMoney(), ActorID: "u1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Screen(ctx, ReviewInput{ID: first.ID, ActorScope: "owner", ActorID: "ops"}); err != nil {
		t.Fatalf("Screen: %v", err)
	}

	all, err := f.svc.ListByTenant(ctx, "t1", "", 0, 0)
	if err != nil {
		t.Fatalf("ListByTenant all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d requests, want 2", len(all))
	}

	inReview, err := f.svc.ListByTenant(ctx, "t1", StatusReview, 0, 0)
	if err != nil {
		t.Fatalf("ListByTenant review: %v", err)
	}
	if len(inReview) != 1 || inReview[0].ID != first.ID {
		t.Fatalf("review filter returned %+v", inReview)
	}

	if _, err := f.svc.ListByTenant(ctx, "t1", Status("done"), 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

func TestRedactedDetails(t *testing.T) {
	d := TargetDetails{BeneficiaryName: "Awa Diop", PhoneNumber: "+221771234567", AccountNumber: "SN0123456789"}
	red := d.Redacted()
	if red.PhoneNumber != "***********67" {
		t.Fatalf("phone = %q", red.PhoneNumber)
	}
	if red.AccountNumber != "********6789" {
		t.Fatalf("account = %q", red.AccountNumber)
	}
	if red.BeneficiaryName != "Awa Diop" {
		t.Fatalf("name should not be masked: %q", red.BeneficiaryName)
	}
}
