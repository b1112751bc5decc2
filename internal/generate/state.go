// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// Stage names, in execution order.
const (
	StageContext        = "prepare_context"
	StageTitles         = "generate_titles"
	StageDescription    = "generate_description"
	StageAttributes     = "generate_attributes"
	StageClassification = "rank_classification"
	StageFAQ            = "generate_faq"
)

// ErrNoContext is recorded by every stage that needs the context blob when
// context preparation produced none.
var ErrNoContext = errors.New("context is absent")

// StageError records a failure inside one stage.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }

// State is the value threaded through one pipeline run. Stages see it as a
// read-only view and return an Update; only the orchestrator applies updates.
type State struct {
	RunID string

	Brief  *types.ProductBrief
	Market *types.MarketContext

	// Context is the formatted blob every generation stage reads.
	Context string

	// TitleBudget is the effective maximum title length in runes.
	TitleBudget int

	RawTitles string
	Titles    []string

	RawDescription string

	Attributes types.AttributeValues

	Classification []types.ClassificationCandidate

	RawFAQ string
	FAQ    []types.FAQEntry

	Errors []StageError
}

// Update is the delta one stage returns. Stage identifies the producer; the
// orchestrator copies only the slot that stage owns.
type Update struct {
	Stage string

	Context        string
	RawTitles      string
	Titles         []string
	RawDescription string
	Attributes     types.AttributeValues
	Classification []types.ClassificationCandidate
	RawFAQ         string
	FAQ            []types.FAQEntry

	Err error
}

// failed returns an Update for stage carrying only err.
func failed(stage string, err error) Update {
	return Update{Stage: stage, Err: err}
}

// apply merges u into a copy of s. Fields outside the producing stage's slot
// are ignored.
func (s State) apply(u Update) State {
	switch u.Stage {
	case StageContext:
		s.Context = u.Context
	case StageTitles:
		s.RawTitles = u.RawTitles
		s.Titles = u.Titles
	case StageDescription:
		s.RawDescription = u.RawDescription
	case StageAttributes:
		s.Attributes = u.Attributes
	case StageClassification:
		s.Classification = u.Classification
	case StageFAQ:
		s.RawFAQ = u.RawFAQ
		s.FAQ = u.FAQ
	}
	if u.Err != nil {
		s.Errors = append(slices.Clone(s.Errors), StageError{Stage: u.Stage, Err: u.Err})
	}
	return s
}
