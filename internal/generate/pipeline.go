// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns a product brief and market research into listing
// content. A run threads one State through a fixed sequence of stages
// (context, titles, description, attributes, classification, FAQ), each
// making at most one model call, then assembles the result.
//
// Stage failures are recorded in the state and never stop the run. Only a
// failure during assembly makes Run return no content.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// ErrAssembly is returned when the final content could not be assembled.
var ErrAssembly = errors.New("assembling content")

// Stage is one pipeline step. Run reads a snapshot of the state and returns
// the delta for its own slot.
type Stage interface {
	Name() string
	Run(ctx context.Context, s State) Update
}

// Models holds the model handle used by each generating stage.
type Models struct {
	Titles         llm.Model
	Description    llm.Model
	Attributes     llm.Model
	Classification llm.Model
	FAQ            llm.Model
}

// UniformModels uses m for every stage.
func UniformModels(m llm.Model) Models {
	return Models{Titles: m, Description: m, Attributes: m, Classification: m, FAQ: m}
}

// NewModels builds one fresh handle per stage from f, sampling each at the
// configured stage temperature.
func NewModels(ctx context.Context, f *llm.Factory) (Models, error) {
	t := f.Config().Temperatures.WithDefaults()
	var (
		m   Models
		err error
	)
	for _, slot := range []struct {
		dst  *llm.Model
		temp float64
	}{
		{&m.Titles, t.Titles},
		{&m.Description, t.Description},
		{&m.Attributes, t.Attributes},
		{&m.Classification, t.Classification},
		{&m.FAQ, t.FAQ},
	} {
		if *slot.dst, err = f.New(ctx, slot.temp); err != nil {
			return Models{}, fmt.Errorf("building model: %w", err)
		}
	}
	return m, nil
}

// Pipeline runs the generation stages in fixed order.
type Pipeline struct {
	stages []Stage
	cfg    types.GenerationConfig
	logger *zap.Logger
	hook   func(stage string, s State)
	runID  func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStageHook registers fn to be called after each stage's update has
// been applied.
func WithStageHook(fn func(stage string, s State)) Option {
	return func(p *Pipeline) { p.hook = fn }
}

// WithRunID replaces the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) { p.runID = fn }
}

// New returns a Pipeline wired to models. A nil logger disables logging.
func New(models Models, cfg types.GenerationConfig, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("generate")
	p := &Pipeline{
		stages: []Stage{
			contextStage{},
			&titleStage{model: models.Titles, logger: logger},
			&descriptionStage{model: models.Description, logger: logger},
			&attributeStage{model: models.Attributes, logger: logger},
			&classificationStage{model: models.Classification, logger: logger},
			&faqStage{model: models.FAQ, logger: logger},
		},
		cfg:    cfg,
		logger: logger,
		runID:  uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes every stage and assembles the content. brief and market may
// be nil; the affected stages then degrade to their failure results.
// titleOverride replaces the configured title budget when positive. A nil
// result with an error means assembly failed.
func (p *Pipeline) Run(ctx context.Context, brief *types.ProductBrief, market *types.MarketContext, titleOverride int) (*types.GeneratedAdContent, error) {
	runID := p.runID()
	log := p.logger.With(zap.String("run_id", runID))

	var categoryID string
	if brief != nil {
		categoryID = brief.CategoryID
	}
	budget, ok := ResolveBudget(titleOverride, categoryID, p.cfg)
	if !ok {
		log.Warn("configured title budget out of range, using default",
			zap.Int("override", titleOverride), zap.String("category", categoryID), zap.Int("budget", budget))
	}

	s := State{RunID: runID, Brief: brief, Market: market, TitleBudget: budget}
	log.Info("pipeline started", zap.String("category", categoryID), zap.Int("title_budget", budget))

	for _, st := range p.stages {
		u := runStage(ctx, st, s)
		s = s.apply(u)
		if u.Err != nil {
			log.Warn("stage failed", zap.String("stage", st.Name()), zap.Error(u.Err))
		} else {
			log.Debug("stage completed", zap.String("stage", st.Name()))
		}
		if p.hook != nil {
			p.hook(st.Name(), s)
		}
	}

	out, err := p.assemble(s, log)
	if err != nil {
		log.Error("pipeline produced no result", zap.Error(err))
		return nil, err
	}
	log.Info("pipeline finished",
		zap.Int("titles", len(out.Titles)),
		zap.Int("attributes", len(out.Attributes)),
		zap.Int("faq", len(out.FAQ)),
		zap.Int("issues", len(out.Issues)))
	return out, nil
}

// runStage runs st and converts a panic into a stage error. The update is
// always attributed to st so a stage can only write its own slot.
func runStage(ctx context.Context, st Stage, s State) (u Update) {
	defer func() {
		if r := recover(); r != nil {
			u = failed(st.Name(), fmt.Errorf("panic: %v", r))
		}
		u.Stage = st.Name()
	}()
	return st.Run(ctx, s)
}

// assemble builds the final content from the completed state.
func (p *Pipeline) assemble(s State, log *zap.Logger) (out *types.GeneratedAdContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: panic: %v", ErrAssembly, r)
		}
	}()

	budget, _ := ClampBudget(s.TitleBudget)
	titles := s.Titles
	if len(titles) == 0 && s.RawTitles != "" {
		log.Warn("no parsed titles in state, re-parsing raw output")
		titles = ParseTitles(s.RawTitles, budget)
	}
	titles = enforceBudget(titles, budget)

	faq := s.FAQ
	var block string
	switch {
	case len(faq) > 0:
		block = FormatFAQ(faq, nil)
	case strings.TrimSpace(s.RawFAQ) != "":
		rec := RecoverFAQ(s.RawFAQ)
		faq = rec.Entries
		block = FormatFAQ(rec.Entries, rec.Bullets)
	}
	description := strings.TrimSpace(s.RawDescription)
	if block == "" {
		log.Warn("no FAQ recovered to merge into the description")
	}
	description += block

	attrs, err := NormalizeAttributes(attributesAsAny(s.Attributes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	classification := RankCandidates(s.Classification)
	if len(classification) == 0 {
		classification = insufficientData()
	}

	var issues []string
	for _, e := range s.Errors {
		issues = append(issues, e.Error())
	}

	return &types.GeneratedAdContent{
		RunID:          s.RunID,
		TitleBudget:    budget,
		Titles:         titles,
		Description:    description,
		Attributes:     attrs,
		Classification: classification,
		FAQ:            faq,
		Issues:         issues,
	}, nil
}

// enforceBudget re-applies truncation so no title leaves the pipeline over
// budget, and caps the list at MaxTitles.
func enforceBudget(titles []string, budget int) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = TruncateTitle(strings.TrimSpace(t), budget); t != "" {
			out = append(out, t)
		}
		if len(out) == MaxTitles {
			break
		}
	}
	return out
}
