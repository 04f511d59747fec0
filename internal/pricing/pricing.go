// Package pricing holds static per-model prices and context window sizes.
// Prices are approximate USD per one million tokens.
package pricing

import "strings"

// TokenCost is the price of one million input and output tokens.
type TokenCost struct {
	Input  float64
	Output float64
}

// modelInfo is matched against a lowercased model name by substring.
type modelInfo struct {
	match         string
	cost          TokenCost
	contextWindow int64
}

// models is checked in order, so more specific names come first
// ("gpt-4o-mini" before "gpt-4o" before "gpt-4").
var models = []modelInfo{
	{match: "gpt-4o-mini", cost: TokenCost{Input: 0.15, Output: 0.6}, contextWindow: 128_000},
	{match: "gpt-4o", cost: TokenCost{Input: 2.5, Output: 10.0}, contextWindow: 128_000},
	{match: "gpt-4-turbo", cost: TokenCost{Input: 10.0, Output: 30.0}, contextWindow: 128_000},
	{match: "gpt-4", cost: TokenCost{Input: 30.0, Output: 60.0}, contextWindow: 8_192},
	{match: "gpt-3.5-turbo", cost: TokenCost{Input: 0.5, Output: 1.5}, contextWindow: 16_385},
	{match: "gemini-2.5-pro", cost: TokenCost{Input: 1.25, Output: 10.0}, contextWindow: 1_048_576},
	{match: "gemini-2.5-flash-lite", cost: TokenCost{Input: 0.1, Output: 0.4}, contextWindow: 1_048_576},
	{match: "gemini-2.5-flash", cost: TokenCost{Input: 0.3, Output: 2.5}, contextWindow: 1_048_576},
	{match: "gemini-2.0-flash", cost: TokenCost{Input: 0.1, Output: 0.4}, contextWindow: 1_048_576},
	{match: "gemini-1.5-pro", cost: TokenCost{Input: 1.25, Output: 5.0}, contextWindow: 2_000_000},
	{match: "gemini-1.5-flash", cost: TokenCost{Input: 0.075, Output: 0.3}, contextWindow: 1_000_000},
}

var (
	defaultCost          = TokenCost{Input: 2.5, Output: 10.0}
	defaultContextWindow = int64(128_000)
)

func lookup(model string) (modelInfo, bool) {
	lower := strings.ToLower(model)
	for _, m := range models {
		if strings.Contains(lower, m.match) {
			return m, true
		}
	}
	return modelInfo{}, false
}

// CostPer1MTokens returns the price for model. Unknown models get the
// gpt-4o price.
func CostPer1MTokens(model string) TokenCost {
	if m, ok := lookup(model); ok {
		return m.cost
	}
	return defaultCost
}

// ContextWindow returns the context size of model in tokens. Unknown models
// are assumed to have 128k.
func ContextWindow(model string) int64 {
	if m, ok := lookup(model); ok {
		return m.contextWindow
	}
	return defaultContextWindow
}

// CalculateCost returns the USD cost of a completion.
func CalculateCost(model string, promptTokens, completionTokens int64) float64 {
	costs := CostPer1MTokens(model)
	inputCost := float64(promptTokens) / 1_000_000 * costs.Input
	outputCost := float64(completionTokens) / 1_000_000 * costs.Output
	return inputCost + outputCost
}

// ContextUsagePercent returns how much of model's context window tokens
// fills.
func ContextUsagePercent(model string, tokens int64) float64 {
	window := ContextWindow(model)
	if window <= 0 {
		return 0
	}
	return float64(tokens) / float64(window) * 100
}
