// Package pricing converts completion-service token usage into dollar
// estimates and accumulates them into a per-invocation budget.
package pricing

import (
	"github.com/marketlyhq/contentscout/types"
)

// Rates are USD per one million tokens.
type Rates struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// BaselineModel supplies the rates used for models missing from the
// table. Cost never fails on an unrecognized model name.
const BaselineModel = "gpt-4o-mini"

var modelRates = map[string]Rates{
	"gpt-4o":       {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"gpt-4o-mini":  {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4.1":      {InputPerMTok: 2.00, OutputPerMTok: 8.00},
	"gpt-4.1-mini": {InputPerMTok: 0.40, OutputPerMTok: 1.60},
	"o4-mini":      {InputPerMTok: 1.10, OutputPerMTok: 4.40},
}

// RatesFor returns the pricing pair for a model, falling back to the
// baseline model's rates when the model is unrecognized.
func RatesFor(model string) Rates {
	if r, ok := modelRates[model]; ok {
		return r
	}
	return modelRates[BaselineModel]
}

// Cost is a pure function from usage counts to a cost record.
func Cost(model string, usage types.Usage) types.CostRecord {
	rates := RatesFor(model)
	in := float64(usage.InputTokens) / 1e6 * rates.InputPerMTok
	out := float64(usage.OutputTokens) / 1e6 * rates.OutputPerMTok
	return types.CostRecord{
		Model:         model,
		InputTokens:   usage.InputTokens,
		OutputTokens:  usage.OutputTokens,
		InputCostUSD:  in,
		OutputCostUSD: out,
		TotalCostUSD:  in + out,
	}
}

// Budget tracks accumulated spend for one research invocation. It is
// mutated only through Accumulate and is monotonically increasing.
type Budget struct {
	Iterations int
	CostUSD    float64
	Records    []types.CostRecord
}

// Accumulate adds one round-trip's cost. It is called exactly once per
// completion-service call, on every branch the loop can take.
func (b *Budget) Accumulate(rec types.CostRecord) {
	b.Iterations++
	b.CostUSD += rec.TotalCostUSD
	b.Records = append(b.Records, rec)
}

func (b *Budget) Exceeded(capUSD float64) bool {
	return capUSD > 0 && b.CostUSD >= capUSD
}

func (b *Budget) TotalTokens() int {
	total := 0
	for _, rec := range b.Records {
		total += rec.InputTokens + rec.OutputTokens
	}
	return total
}

func (b *Budget) Info() types.CostInfo {
	return types.CostInfo{
		TotalCost:      b.CostUSD,
		TotalTokens:    b.TotalTokens(),
		IterationCosts: append([]types.CostRecord(nil), b.Records...),
	}
}
