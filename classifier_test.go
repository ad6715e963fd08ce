package buywatch

import (
	"math"
	"testing"
)

const testMint = "Mint1111111111111111111111111111111111111111"

func testClassifier() Classifier {
	return Classifier{
		Mint:         testMint,
		TokensPerSOL: 7000,
	}
}

func buyDetail(preLamports, postLamports uint64) *TransactionDetail {
	return &TransactionDetail{
		AccountKeys: []string{"Buyer111", "Pool111"},
		Meta: TransactionMeta{
			PreBalances:  []uint64{preLamports, 0},
			PostBalances: []uint64{postLamports, 0},
		},
	}
}

func TestClassifyExtractsBuyerAndAmounts(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 4_000_000_000)
	detail.Meta.PreTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "Buyer111", UIAmount: 100},
	}
	detail.Meta.PostTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "Buyer111", UIAmount: 600},
	}

	event := testClassifier().Classify(detail, "sig-buy", 150)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if event.Buyer != "Buyer111" {
		t.Fatalf("unexpected buyer: %s", event.Buyer)
	}
	if math.Abs(event.SolSpent-1.0) > 1e-12 {
		t.Fatalf("unexpected sol spent: %v", event.SolSpent)
	}
	if math.Abs(event.USDValue-150.0) > 1e-9 {
		t.Fatalf("unexpected usd value: %v", event.USDValue)
	}
	if math.Abs(event.TokenAmount-500) > 1e-9 {
		t.Fatalf("unexpected token amount: %v", event.TokenAmount)
	}
	if event.Signature != "sig-buy" {
		t.Fatalf("unexpected signature: %s", event.Signature)
	}
}

func TestClassifyUsesPostBalanceWhenNoPreEntry(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 4_500_000_000)
	detail.Meta.PostTokenBalances = []TokenBalance{
		{Mint: "OtherMint", Owner: "Someone", UIAmount: 99},
		{Mint: testMint, Owner: "Buyer111", UIAmount: 250},
	}

	event := testClassifier().Classify(detail, "sig", 100)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if math.Abs(event.TokenAmount-250) > 1e-9 {
		t.Fatalf("unexpected token amount: %v", event.TokenAmount)
	}
}

func TestClassifyFallsBackToEstimate(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 4_000_000_000)

	event := testClassifier().Classify(detail, "sig", 100)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if math.Abs(event.TokenAmount-7000) > 1e-9 {
		t.Fatalf("expected estimated amount 7000, got %v", event.TokenAmount)
	}
}

func TestClassifyEstimateAfterNegativeDelta(t *testing.T) {
	t.Parallel()

	// The pre/post join resolves a negative delta and no post entry is
	// positive, so the estimate still applies.
	detail := buyDetail(5_000_000_000, 4_000_000_000)
	detail.Meta.PreTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "PoolOwner", UIAmount: 900},
	}
	detail.Meta.PostTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "PoolOwner", UIAmount: 0},
	}

	event := testClassifier().Classify(detail, "sig", 100)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if math.Abs(event.TokenAmount-7000) > 1e-9 {
		t.Fatalf("expected estimated amount 7000, got %v", event.TokenAmount)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 4_000_000_000)
	detail.Meta.PreTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "OwnerA", UIAmount: 10},
		{Mint: testMint, Owner: "OwnerB", UIAmount: 0},
	}
	detail.Meta.PostTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "OwnerA", UIAmount: 40},
		{Mint: testMint, Owner: "OwnerB", UIAmount: 9000},
	}

	// Only the first pre entry's owner participates in the join.
	event := testClassifier().Classify(detail, "sig", 100)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if math.Abs(event.TokenAmount-30) > 1e-9 {
		t.Fatalf("expected first-match delta 30, got %v", event.TokenAmount)
	}
}

func TestClassifyRejectsNonPurchases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		detail *TransactionDetail
	}{
		{name: "nil detail", detail: nil},
		{name: "no accounts", detail: &TransactionDetail{
			Meta: TransactionMeta{PreBalances: []uint64{1}, PostBalances: []uint64{0}},
		}},
		{name: "no balances", detail: &TransactionDetail{AccountKeys: []string{"A"}}},
		{name: "balance increased", detail: buyDetail(4_000_000_000, 5_000_000_000)},
		{name: "balance unchanged", detail: buyDetail(4_000_000_000, 4_000_000_000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if event := testClassifier().Classify(tt.detail, "sig", 100); event != nil {
				t.Fatalf("expected nil, got %+v", event)
			}
		})
	}
}

func TestClassifyFallbackPrice(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 4_000_000_000)

	event := testClassifier().Classify(detail, "sig", 0)
	if event == nil {
		t.Fatal("expected a purchase event, got nil")
	}
	if math.Abs(event.USDValue-100.0) > 1e-9 {
		t.Fatalf("expected fallback usd value 100, got %v", event.USDValue)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	detail := buyDetail(5_000_000_000, 3_750_000_000)
	detail.Meta.PostTokenBalances = []TokenBalance{
		{Mint: testMint, Owner: "Buyer111", UIAmount: 875},
	}

	classifier := testClassifier()
	first := classifier.Classify(detail, "sig", 120)
	second := classifier.Classify(detail, "sig", 120)
	if first == nil || second == nil {
		t.Fatal("expected purchase events")
	}
	if *first != *second {
		t.Fatalf("classification not idempotent: %+v vs %+v", *first, *second)
	}
}
