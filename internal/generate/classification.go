// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/internal/repair"
	"github.com/pdiddy/listing-engine/pkg/types"
)

const (
	// MaxCandidates is the number of classification candidates kept.
	MaxCandidates = 3

	maxReferenceAttributes = 20
)

// ErrShape is returned when a decoded candidate lacks a required field or
// carries an unknown confidence tier.
var ErrShape = errors.New("candidate failed shape validation")

// ParseClassification locates the candidate array in raw, preferring a
// fenced block, and validates every element. One invalid element fails the
// whole batch. An empty array yields an empty slice and no error.
func ParseClassification(raw string) ([]types.ClassificationCandidate, error) {
	text := raw
	if body, ok := repair.FencedBlock(raw); ok {
		text = body
	}
	block, err := repair.ExtractArray(text)
	if err != nil {
		return nil, fmt.Errorf("locating candidate array: %w", err)
	}
	arr, err := repair.AsArray(repair.DecodeStrict(block))
	if err != nil {
		return nil, fmt.Errorf("decoding candidate array: %w", err)
	}

	cands := make([]types.ClassificationCandidate, 0, len(arr))
	for i, el := range arr {
		c, err := toCandidate(el)
		if err != nil {
			return nil, fmt.Errorf("element %d of %d: %w", i+1, len(arr), err)
		}
		cands = append(cands, c)
	}
	return RankCandidates(cands), nil
}

func toCandidate(v any) (types.ClassificationCandidate, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return types.ClassificationCandidate{}, fmt.Errorf("%w: element is %T, not an object", ErrShape, v)
	}
	code, ok := stringField(obj, "code", "ncm_code")
	if !ok || strings.TrimSpace(code) == "" {
		return types.ClassificationCandidate{}, fmt.Errorf("%w: missing code", ErrShape)
	}
	explanation, ok := stringField(obj, "explanation", "justificativa")
	if !ok {
		return types.ClassificationCandidate{}, fmt.Errorf("%w: missing explanation", ErrShape)
	}
	label, ok := stringField(obj, "confidence", "confianca")
	if !ok {
		return types.ClassificationCandidate{}, fmt.Errorf("%w: missing confidence", ErrShape)
	}
	conf, ok := types.ParseConfidence(label)
	if !ok {
		return types.ClassificationCandidate{}, fmt.Errorf("%w: unknown confidence %q", ErrShape, label)
	}
	return types.ClassificationCandidate{
		Code:        strings.TrimSpace(code),
		Explanation: strings.TrimSpace(explanation),
		Confidence:  conf,
	}, nil
}

// stringField returns the first of keys present in obj with a string value.
func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			s, isString := v.(string)
			return s, isString
		}
	}
	return "", false
}

// RankCandidates orders candidates by descending confidence, keeping the
// model's order within a tier, and caps the list at MaxCandidates.
func RankCandidates(c []types.ClassificationCandidate) []types.ClassificationCandidate {
	out := append([]types.ClassificationCandidate(nil), c...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence.Rank() > out[j].Confidence.Rank()
	})
	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out
}

func insufficientData() []types.ClassificationCandidate {
	return []types.ClassificationCandidate{{
		Code:        types.CodeNotAvailable,
		Explanation: "Dados insuficientes para análise.",
		Confidence:  types.ConfidenceLow,
	}}
}

func errorCandidate(err error) []types.ClassificationCandidate {
	return []types.ClassificationCandidate{{
		Code:        types.CodeError,
		Explanation: fmt.Sprintf("Falha no processamento da classificação: %v", err),
		Confidence:  types.ConfidenceLow,
	}}
}

// classificationStage ranks tax classification candidates. It always
// returns at least one candidate.
type classificationStage struct {
	model  llm.Model
	logger *zap.Logger
}

func (*classificationStage) Name() string { return StageClassification }

func (st *classificationStage) Run(ctx context.Context, s State) Update {
	if s.Brief == nil || s.Market == nil || len(s.Attributes) == 0 {
		st.logger.Warn("insufficient data for classification")
		return Update{Stage: StageClassification, Classification: insufficientData()}
	}

	prompt, err := render(classificationPromptTmpl, classificationView(s))
	if err != nil {
		err = fmt.Errorf("rendering prompt: %w", err)
		return Update{Stage: StageClassification, Classification: errorCandidate(err), Err: err}
	}

	raw, err := st.model.Invoke(ctx, prompt)
	if err != nil {
		err = fmt.Errorf("invoking model: %w", err)
		return Update{Stage: StageClassification, Classification: errorCandidate(err), Err: err}
	}

	cands, err := ParseClassification(raw)
	if err != nil {
		st.logger.Warn("classification batch discarded", zap.Error(err), zap.String("raw", raw))
		return Update{Stage: StageClassification, Classification: errorCandidate(err), Err: err}
	}
	if len(cands) == 0 {
		st.logger.Warn("model returned no classification candidates")
		return Update{Stage: StageClassification, Classification: insufficientData()}
	}
	st.logger.Debug("classification ranked", zap.Int("count", len(cands)),
		zap.String("top", cands[0].Code), zap.String("confidence", string(cands[0].Confidence)))
	return Update{Stage: StageClassification, Classification: cands}
}

type classificationPrompt struct {
	CategoryID         string
	Description        string
	Attributes         []string
	CategoryAttributes []string
}

func classificationView(s State) classificationPrompt {
	v := classificationPrompt{
		CategoryID:  s.Brief.CategoryID,
		Description: s.RawDescription,
	}
	if strings.TrimSpace(v.Description) == "" {
		v.Description = "Nenhuma descrição gerada."
	}
	keys := make([]string, 0, len(s.Attributes))
	for k := range s.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := "null"
		if p := s.Attributes[k]; p != nil {
			val = *p
		}
		v.Attributes = append(v.Attributes, k+": "+val)
	}
	for _, a := range head(s.Market.Attributes, maxReferenceAttributes) {
		v.CategoryAttributes = append(v.CategoryAttributes, a.Name)
	}
	return v
}
