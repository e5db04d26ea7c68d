package fx

import (
	"context"
	"errors"
	"testing"
)

func TestConvertMinorUSDToXOF(t *testing.T) {
	conv, err := ConvertMinor(context.Background(), NewStaticConverter(), 100, "USD", "XOF")
	if err != nil {
		t.Fatalf("ConvertMinor: %v", err)
	}
	if conv.ResultMinor != 60_000 {
		t.Fatalf("ResultMinor = %d, want 60000", conv.ResultMinor)
	}
	if conv.Rate.String() != "600" {
		t.Fatalf("Rate = %s, want 600", conv.Rate)
	}
}

func TestConvertMinorRoundsHalfUp(t *testing.T) {
	c := NewStaticConverter()
	ctx := context.Background()

	// 50 * 0.39 = 19.5, rounds to 20.
	conv, err := ConvertMinor(ctx, c, 50, "NGN", "XOF")
	if err != nil {
		t.Fatalf("ConvertMinor: %v", err)
	}
	if conv.ResultMinor != 20 {
		t.Fatalf("ResultMinor = %d, want 20", conv.ResultMinor)
	}

	// 1 * 0.39 = 0.39, rounds to 0.
	conv, err = ConvertMinor(ctx, c, 1, "NGN", "XOF")
	if err != nil {
		t.Fatalf("ConvertMinor: %v", err)
	}
	if conv.ResultMinor != 0 {
		t.Fatalf("ResultMinor = %d, want 0", conv.ResultMinor)
	}
}

func TestConvertMinorSameCurrencyIdentity(t *testing.T) {
	conv, err := ConvertMinor(context.Background(), NewStaticConverter(), 12_345, "XOF", "XOF")
	if err != nil {
		t.Fatalf("ConvertMinor: %v", err)
	}
	if conv.ResultMinor != 12_345 {
		t.Fatalf("ResultMinor = %d, want 12345", conv.ResultMinor)
	}
	if conv.Rate.String() != "1" {
		t.Fatalf("Rate = %s, want 1", conv.Rate)
	}
}

func TestConvertMinorUnsupportedPair(t *testing.T) {
	_, err := ConvertMinor(context.Background(), NewStaticConverter(), 100, "JPY", "XOF")
	if !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected ErrUnsupportedPair, got %v", err)
	}
}

func TestConvertMinorRejectsNegativeAmount(t *testing.T) {
	if _, err := ConvertMinor(context.Background(), NewStaticConverter(), -1, "USD", "XOF"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
