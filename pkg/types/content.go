// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Confidence is the tier attached to a classification candidate.
// The set is closed and ordered: high > medium > low.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the ordering weight of the tier. Unknown tiers rank below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// ParseConfidence maps a model-supplied tier label to a Confidence.
// English and Portuguese labels are accepted, case-insensitive.
func ParseConfidence(s string) (Confidence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alta", "alto":
		return ConfidenceHigh, true
	case "medium", "média", "media", "médio", "medio":
		return ConfidenceMedium, true
	case "low", "baixa", "baixo":
		return ConfidenceLow, true
	}
	return "", false
}

// Sentinel classification codes.
const (
	// CodeNotAvailable marks a candidate produced without enough input data.
	CodeNotAvailable = "N/A"

	// CodeError marks the single fallback candidate returned when the
	// model output could not be decoded or validated.
	CodeError = "ERROR"
)

// ClassificationCandidate is one ranked tax/category code suggestion.
type ClassificationCandidate struct {
	Code        string     `json:"code" yaml:"code"`
	Explanation string     `json:"explanation" yaml:"explanation"`
	Confidence  Confidence `json:"confidence" yaml:"confidence"`
}

// AttributeValues maps attribute names to suggested values. A nil value is
// an explicit "no value" entry and is kept distinct from a missing key.
type AttributeValues map[string]*string

// FAQEntry is one question/answer pair.
type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// GeneratedAdContent is the result of one pipeline run. It is never
// persisted by the engine itself.
type GeneratedAdContent struct {
	// RunID identifies the pipeline invocation in logs.
	RunID string `json:"run_id" yaml:"run_id"`

	// TitleBudget is the effective character budget the titles obey.
	TitleBudget int `json:"title_budget" yaml:"title_budget"`

	// Titles holds at most five candidates, each within TitleBudget runes.
	Titles []string `json:"titles" yaml:"titles"`

	// Description is the final text with any recovered FAQ merged in.
	Description string `json:"description" yaml:"description"`

	Attributes     AttributeValues           `json:"attributes" yaml:"attributes"`
	Classification []ClassificationCandidate `json:"classification" yaml:"classification"`

	// FAQ holds the structured pairs that were recovered, if any.
	FAQ []FAQEntry `json:"faq,omitempty" yaml:"faq,omitempty"`

	// Issues lists stage failures recorded during the run. An empty list
	// means every stage completed normally.
	Issues []string `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Degraded reports whether any stage recorded a failure.
func (g *GeneratedAdContent) Degraded() bool {
	return len(g.Issues) > 0
}
