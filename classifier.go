package buywatch

// PurchaseEvent describes one classified token purchase.
type PurchaseEvent struct {
	Buyer       string
	SolSpent    float64
	USDValue    float64
	TokenAmount float64
	Signature   string
}

// Classifier decides whether a raw transaction record represents a purchase
// of the tracked token and extracts the buyer, the SOL spent, and the token
// amount received. Classify is a pure function of its inputs.
type Classifier struct {
	Mint         string
	TokensPerSOL float64
}

// Classify returns the purchase extracted from the transaction detail, or nil
// when the record does not look like a purchase. solPriceUSD of zero or less
// falls back to the fixed placeholder rate.
//
// The buyer is taken to be the first account in the account list (the fee
// payer). A non-positive SOL delta on that account means a sale or an
// unrelated transaction.
func (c Classifier) Classify(detail *TransactionDetail, signature string, solPriceUSD float64) *PurchaseEvent {
	if detail == nil || len(detail.AccountKeys) == 0 {
		return nil
	}
	if len(detail.Meta.PreBalances) == 0 || len(detail.Meta.PostBalances) == 0 {
		return nil
	}

	buyer := detail.AccountKeys[0]
	solSpent := (float64(detail.Meta.PreBalances[0]) - float64(detail.Meta.PostBalances[0])) / lamportsPerSOL
	if solSpent <= 0 {
		return nil
	}

	price := solPriceUSD
	if price <= 0 {
		price = fallbackSOLPriceUSD
	}

	return &PurchaseEvent{
		Buyer:       buyer,
		SolSpent:    solSpent,
		USDValue:    solSpent * price,
		TokenAmount: c.resolveTokenAmount(detail.Meta, solSpent),
		Signature:   signature,
	}
}

// resolveTokenAmount applies three rules in order, taking the first positive
// result:
//  1. the pre/post delta for the first pre-transaction entry of the tracked
//     mint, joined to the post entry with the same owner (first match wins);
//  2. any positive post-transaction balance for the tracked mint;
//  3. an estimate from the SOL spent at the configured rate.
//
// Rule 3 guarantees a positive amount whenever solSpent is positive.
func (c Classifier) resolveTokenAmount(meta TransactionMeta, solSpent float64) float64 {
	var amount float64

	for _, pre := range meta.PreTokenBalances {
		if pre.Mint != c.Mint {
			continue
		}
		for _, post := range meta.PostTokenBalances {
			if post.Mint == c.Mint && post.Owner == pre.Owner {
				amount = post.UIAmount - pre.UIAmount
				break
			}
		}
		break
	}

	if amount <= 0 {
		for _, post := range meta.PostTokenBalances {
			if post.Mint == c.Mint && post.UIAmount > 0 {
				amount = post.UIAmount
				break
			}
		}
	}

	if amount <= 0 {
		amount = solSpent * c.TokensPerSOL
	}
	return amount
}
