package similarity

// ProfitEstimate is the outcome of applying a ProfitModel to one pair of prices.
type ProfitEstimate struct {
	NetProceeds float64 // candidate price minus fees and shipping, target currency
	SourceCost  float64 // source price converted to the target currency
	Amount      float64 // NetProceeds - SourceCost
	Margin      float64 // Amount / SourceCost * 100
}

// Estimate computes
//
//	net    = candidate - candidate*fee - shipping
//	cost   = source * exchange_rate
//	margin = (net - cost) / cost * 100
//
// A non-positive candidate price or converted source cost is an
// InvalidInputError.
func (m ProfitModel) Estimate(sourcePrice, candidatePrice float64) (ProfitEstimate, error) {
	if isBad(sourcePrice) || isBad(candidatePrice) {
		return ProfitEstimate{}, invalidInput("price", "prices must be finite numbers")
	}
	if candidatePrice <= 0 {
		return ProfitEstimate{}, invalidInput("candidate_price", "must be positive, got %v", candidatePrice)
	}
	cost := sourcePrice * m.ExchangeRate
	if cost <= 0 || isBad(cost) {
		return ProfitEstimate{}, invalidInput("source_price", "converted source cost must be positive, got %v", cost)
	}
	net := candidatePrice - candidatePrice*m.FeeRate - m.ShippingEstimate
	amount := net - cost
	return ProfitEstimate{
		NetProceeds: net,
		SourceCost:  cost,
		Amount:      amount,
		Margin:      amount / cost * 100,
	}, nil
}
