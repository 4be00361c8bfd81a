package classifier

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// Hybrid asks the model first and falls back to the rules when the model is
// unavailable or its answer cannot be used.
type Hybrid struct {
	llm    *LLM
	rules  *Rules
	logger *slog.Logger
}

// NewHybrid creates a hybrid classifier. llm may be nil, in which case the
// rules always decide.
func NewHybrid(llm *LLM, rules *Rules, logger *slog.Logger) *Hybrid {
	return &Hybrid{llm: llm, rules: rules, logger: logger}
}

// Classify returns a verdict for text. It never fails.
func (h *Hybrid) Classify(ctx context.Context, text string, history []state.Message) Result {
	if h.llm != nil {
		res, err := h.llm.Classify(ctx, text, history)
		if err == nil {
			return res
		}
		h.logger.Warn("llm classification failed, using rules", "error", err)
	}
	return h.rules.Classify(text, history)
}
