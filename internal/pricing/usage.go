package pricing

// UsageInfo is the token accounting of one completion with its derived cost.
type UsageInfo struct {
	PromptTokens        int64
	CompletionTokens    int64
	TotalTokens         int64
	EstimatedCost       float64
	ContextWindow       int64
	ContextUsagePercent float64
}

// NewUsageInfo prices a completion for model. Negative counts are treated
// as zero.
func NewUsageInfo(model string, promptTokens, completionTokens, totalTokens int64) UsageInfo {
	promptTokens = max(promptTokens, 0)
	completionTokens = max(completionTokens, 0)
	totalTokens = max(totalTokens, 0)
	if totalTokens == 0 {
		totalTokens = promptTokens + completionTokens
	}
	return UsageInfo{
		PromptTokens:        promptTokens,
		CompletionTokens:    completionTokens,
		TotalTokens:         totalTokens,
		EstimatedCost:       CalculateCost(model, promptTokens, completionTokens),
		ContextWindow:       ContextWindow(model),
		ContextUsagePercent: ContextUsagePercent(model, totalTokens),
	}
}

// Add returns the sum of two usages. The context window of u is kept.
func (u UsageInfo) Add(other UsageInfo) UsageInfo {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.EstimatedCost += other.EstimatedCost
	if u.ContextWindow == 0 {
		u.ContextWindow = other.ContextWindow
	}
	if u.ContextWindow > 0 {
		u.ContextUsagePercent = float64(u.TotalTokens) / float64(u.ContextWindow) * 100
	}
	return u
}
