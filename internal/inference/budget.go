package inference

import (
	"lexgraph/internal/logging"
	"lexgraph/internal/sizing"
	"lexgraph/internal/types"
)

// minCompletionTokens is the smallest useful completion budget. When
// the prompt squeezes the completion below this, the call fails with a
// ContextOverflowError instead of truncating.
const minCompletionTokens = 256

// perMessageOverheadTokens accounts for the chat framing around each
// message.
const perMessageOverheadTokens = 4

// estimatePromptTokens sums the token estimates of all messages.
func estimatePromptTokens(est sizing.Estimator, msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += est.Estimate(m.Content) + perMessageOverheadTokens
	}
	return total
}

// applyTokenBudget verifies the request fits the model context. It may
// shrink MaxTokens to fit; when even the minimum completion does not
// fit it returns a ContextOverflowError with the excess. The prompt is
// never truncated.
func applyTokenBudget(est sizing.Estimator, req *Request, maxContext int) error {
	prompt := estimatePromptTokens(est, req.Messages)

	if prompt+minCompletionTokens > maxContext {
		return &types.ContextOverflowError{
			EstimatedTokens: prompt + minCompletionTokens,
			MaxTokens:       maxContext,
			Excess:          prompt + minCompletionTokens - maxContext,
		}
	}
	if prompt+req.MaxTokens > maxContext {
		reduced := maxContext - prompt
		logging.InferenceDebug("completion budget reduced from %d to %d tokens (prompt ~%d)",
			req.MaxTokens, reduced, prompt)
		req.MaxTokens = reduced
	}
	return nil
}
