// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
)

// descriptionStage generates the long-form description. An empty answer is
// tolerated.
type descriptionStage struct {
	model  llm.Model
	logger *zap.Logger
}

func (*descriptionStage) Name() string { return StageDescription }

func (st *descriptionStage) Run(ctx context.Context, s State) Update {
	if s.Context == "" {
		return failed(StageDescription, ErrNoContext)
	}
	prompt, err := render(descriptionPromptTmpl, struct{ Context string }{s.Context})
	if err != nil {
		return failed(StageDescription, fmt.Errorf("rendering prompt: %w", err))
	}
	raw, err := st.model.Invoke(ctx, prompt)
	if err != nil {
		return failed(StageDescription, fmt.Errorf("invoking model: %w", err))
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		st.logger.Warn("model returned an empty description")
	}
	return Update{Stage: StageDescription, RawDescription: raw}
}
