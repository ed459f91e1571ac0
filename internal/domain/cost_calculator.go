package domain

const tokensPerMillion = 1_000_000.0

// Cost returns the USD cost of the given token counts at this price.
func (p ModelPrice) Cost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / tokensPerMillion * p.Input
	outputCost := float64(outputTokens) / tokensPerMillion * p.Output
	return inputCost + outputCost
}

// Cost computes the cost of a call against the table.
func (t *PricingTable) Cost(model string, inputTokens, outputTokens int64) float64 {
	price, _ := t.Resolve(model)
	return price.Cost(inputTokens, outputTokens)
}

// RecordCost computes the cost of a usage record against the table.
func (t *PricingTable) RecordCost(record UsageRecord) float64 {
	return t.Cost(record.Model, record.InputTokens, record.OutputTokens)
}
