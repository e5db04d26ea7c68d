package pricing

import (
	"context"
	"errors"
	"testing"

	"logistics-payments/internal/audit"
)

func newService(t *testing.T) *Service {
	t.Helper()
	auditor := audit.NewService(audit.NewMemoryRepo(), nil)
	return NewService(NewMemoryCatalogRepo(), NewMemoryTenantPriceRepo(), NewMemoryRateCardRepo(), auditor)
}

func seedItem(t *testing.T, svc *Service, kind ItemKind, code string, baseMinor int64) Item {
	t.Helper()
	it, err := svc.UpsertItem(context.Background(), UpsertItemInput{
		Kind:      kind,
		Code:      code,
		Name:      code,
		Currency:  "XOF",
		BaseMinor: baseMinor,
		Active:    true,
	}, Actor{Scope: "owner", ID: "admin"})
	if err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	return it
}

func TestComputeResalePrice(t *testing.T) {
	cases := []struct {
		base int64
		rule MarginRule
		want int64
	}{
		{10_000, MarginRule{Kind: MarginPercent, Value: 20}, 12_000},
		{10_000, MarginRule{Kind: MarginFixed, Value: 1_500}, 11_500},
		{10_000, MarginRule{Kind: MarginPercent, Value: 0}, 10_000},
		// 999 * 115 / 100 = 1148.85, half-up to 1149.
		{999, MarginRule{Kind: MarginPercent, Value: 15}, 1_149},
		{0, MarginRule{Kind: MarginPercent, Value: 50}, 0},
	}
	for _, c := range cases {
		got, err := ComputeResalePrice(c.base, c.rule)
		if err != nil {
			t.Fatalf("ComputeResalePrice(%d, %+v): %v", c.base, c.rule, err)
		}
		if got != c.want {
			t.Fatalf("ComputeResalePrice(%d, %+v) = %d, want %d", c.base, c.rule, got, c.want)
		}
	}
}

func TestComputeResalePriceRejectsBadRules(t *testing.T) {
	if _, err := ComputeResalePrice(10_000, MarginRule{Kind: "discount", Value: 10}); !errors.Is(err, ErrInvalidMargin) {
		t.Fatalf("expected ErrInvalidMargin for unknown kind, got %v", err)
	}
	if _, err := ComputeResalePrice(10_000, MarginRule{Kind: MarginPercent, Value: -5}); !errors.Is(err, ErrInvalidMargin) {
		t.Fatalf("expected ErrInvalidMargin for negative value, got %v", err)
	}
	if _, err := ComputeResalePrice(-1, MarginRule{Kind: MarginFixed, Value: 100}); !errors.Is(err, ErrInvalidMargin) {
		t.Fatalf("expected ErrInvalidMargin for negative base, got %v", err)
	}
}

func TestSetMarginCachesResale(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seedItem(t, svc, ItemPlan, "starter", 10_000)

	tp, err := svc.SetMargin(ctx, SetMarginInput{
		TenantID: "t1",
		Kind:     ItemPlan,
		Code:     "starter",
		Margin:   MarginRule{Kind: MarginPercent, Value: 20},
	}, Actor{ID: "u1"})
	if err != nil {
		t.Fatalf("SetMargin: %v", err)
	}
	if tp.ResaleMinor != 12_000 {
		t.Fatalf("ResaleMinor = %d, want 12000", tp.ResaleMinor)
	}

	got, err := svc.ResalePrice(ctx, "t1", ItemPlan, "starter")
	if err != nil {
		t.Fatalf("ResalePrice: %v", err)
	}
	if got != 12_000 {
		t.Fatalf("ResalePrice = %d, want 12000", got)
	}
}

func TestResalePriceFollowsBaseChange(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seedItem(t, svc, ItemPlan, "starter", 10_000)

	if _, err := svc.SetMargin(ctx, SetMarginInput{
		TenantID: "t1",
		Kind:     ItemPlan,
		Code:     "starter",
		Margin:   MarginRule{Kind: MarginPercent, Value: 20},
	}, Actor{ID: "u1"}); err != nil {
		t.Fatalf("SetMargin: %v", err)
	}

	// Owner reprices the plan; the tenant margin must apply to the new base.
	seedItem(t, svc, ItemPlan, "starter", 20_000)

	got, err := svc.ResalePrice(ctx, "t1", ItemPlan, "starter")
	if err != nil {
		t.Fatalf("ResalePrice: %v", err)
	}
	if got != 24_000 {
		t.Fatalf("ResalePrice after repricing = %d, want 24000", got)
	}
}

func TestResalePricePassesThroughWithoutMargin(t *testing.T) {
	svc := newService(t)
	seedItem(t, svc, ItemAddon, "extra-driver", 2_500)

	got, err := svc.ResalePrice(context.Background(), "t1", ItemAddon, "extra-driver")
	if err != nil {
		t.Fatalf("ResalePrice: %v", err)
	}
	if got != 2_500 {
		t.Fatalf("got %d, want base 2500", got)
	}
}

func TestSetMarginUnknownItem(t *testing.T) {
	svc := newService(t)
	_, err := svc.SetMargin(context.Background(), SetMarginInput{
		TenantID: "t1",
		Kind:     ItemPlan,
		Code:     "ghost",
		Margin:   MarginRule{Kind: MarginFixed, Value: 100},
	}, Actor{ID: "u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRateCardTierSelection(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// Tiers deliberately out of order; Upsert sorts them.
	_, err := svc.UpsertRateCard(ctx, UpsertRateCardInput{
		TenantID: "t1",
		Code:     "deliveries",
		Currency: "XOF",
		Tiers: []RateTier{
			{MinQty: 50, UnitMinor: 80},
			{MinQty: 0, UnitMinor: 100},
			{MinQty: 200, UnitMinor: 60},
		},
	}, Actor{ID: "u1"})
	if err != nil {
		t.Fatalf("UpsertRateCard: %v", err)
	}

	cases := []struct {
		qty  int64
		want int64
	}{
		{0, 100},
		{49, 100},
		{50, 80},
		{60, 80},
		{199, 80},
		{200, 60},
		{10_000, 60},
	}
	for _, c := range cases {
		got, err := svc.UnitPrice(ctx, "t1", "deliveries", c.qty)
		if err != nil {
			t.Fatalf("UnitPrice(%d): %v", c.qty, err)
		}
		if got != c.want {
			t.Fatalf("UnitPrice(%d) = %d, want %d", c.qty, got, c.want)
		}
	}

	if _, err := svc.UnitPrice(ctx, "t1", "deliveries", -1); !errors.Is(err, ErrInvalidTiers) {
		t.Fatalf("expected ErrInvalidTiers for negative quantity, got %v", err)
	}
}

func TestUpsertRateCardValidatesTiers(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := Actor{ID: "u1"}

	cases := []struct {
		name  string
		tiers []RateTier
	}{
		{"empty", nil},
		{"no zero floor", []RateTier{{MinQty: 10, UnitMinor: 100}}},
		{"zero unit price", []RateTier{{MinQty: 0, UnitMinor: 0}}},
		{"duplicate minimum", []RateTier{{MinQty: 0, UnitMinor: 100}, {MinQty: 0, UnitMinor: 90}}},
	}
	for _, c := range cases {
		_, err := svc.UpsertRateCard(ctx, UpsertRateCardInput{TenantID: "t1", Code: "sms", Currency: "XOF", Tiers: c.tiers}, actor)
		if !errors.Is(err, ErrInvalidTiers) {
			t.Fatalf("%s: expected ErrInvalidTiers, got %v", c.name, err)
		}
	}
}

func TestUnitPriceUnknownCard(t *testing.T) {
	svc := newService(t)
	if _, err := svc.UnitPrice(context.Background(), "t1", "ghost", 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
