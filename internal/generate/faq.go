// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/internal/repair"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// MaxFAQ is the number of question/answer pairs kept.
const MaxFAQ = 8

// ErrNoEntries is returned by a FAQ strategy that decoded data but found no
// usable question/answer pair in it.
var ErrNoEntries = errors.New("no question/answer pairs")

// FAQRecovery is the outcome of running the FAQ parsing chain on raw text.
// Entries is empty when nothing structured was recovered; Bullets then holds
// the cleaned lines of the text. Strategy names the step that succeeded.
type FAQRecovery struct {
	Entries  []types.FAQEntry
	Bullets  []string
	Strategy string
}

// faqStrategies is the ordered chain tried on raw FAQ output. The first
// entry is the primary path; the rest are repairs.
var faqStrategies = []repair.Strategy[[]types.FAQEntry]{
	{Name: "strict", Parse: func(s string) ([]types.FAQEntry, error) {
		return faqEntries(repair.AsArray(repair.DecodeStrict(s)))
	}},
	{Name: "repaired", Parse: func(s string) ([]types.FAQEntry, error) {
		return faqEntries(repair.AsArray(repair.DecodeStrict(repair.Repair(s))))
	}},
	{Name: "lenient", Parse: func(s string) ([]types.FAQEntry, error) {
		return faqEntries(repair.AsArray(repair.DecodeLenient(repair.Repair(s))))
	}},
	{Name: "extracted", Parse: func(s string) ([]types.FAQEntry, error) {
		blocks := repair.ExtractArrays(repair.StripFences(s))
		if len(blocks) == 0 {
			return nil, repair.ErrNoBlock
		}
		for _, block := range blocks {
			if e, err := faqEntries(repair.AsArray(repair.DecodeStrict(block))); err == nil {
				return e, nil
			}
			if e, err := faqEntries(repair.AsArray(repair.DecodeLenient(block))); err == nil {
				return e, nil
			}
		}
		return nil, ErrNoEntries
	}},
	{Name: "question-lines", Parse: parseQuestionLines},
}

// RecoverFAQ runs the FAQ chain on raw. It never fails: when no strategy
// recovers a pair, the cleaned non-empty lines come back as bullets.
func RecoverFAQ(raw string) FAQRecovery {
	if strings.TrimSpace(raw) == "" {
		return FAQRecovery{}
	}
	entries, name, err := repair.First(raw, faqStrategies...)
	if err == nil {
		return FAQRecovery{Entries: entries, Strategy: name}
	}
	return FAQRecovery{Bullets: bulletLines(raw), Strategy: "bullets"}
}

// faqEntries converts decoded objects to entries. Elements without both a
// question and an answer are skipped; at least one pair must remain.
func faqEntries(arr []any, err error) ([]types.FAQEntry, error) {
	if err != nil {
		return nil, err
	}
	var out []types.FAQEntry
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		q, _ := stringField(obj, "question", "pergunta", "q", "p")
		a, _ := stringField(obj, "answer", "resposta", "a", "r")
		q, a = strings.TrimSpace(q), strings.TrimSpace(a)
		if q == "" || a == "" {
			continue
		}
		out = append(out, types.FAQEntry{Question: q, Answer: a})
		if len(out) == MaxFAQ {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

var (
	// jsonNoiseRe matches structural JSON punctuation and FAQ key names.
	jsonNoiseRe = regexp.MustCompile(`(?i)"?\b(?:pergunta|resposta|question|answer)\b"?\s*:|[\[\]{}]`)

	// valueSepRe matches the "," between two quoted JSON values.
	valueSepRe = regexp.MustCompile(`"\s*,\s*"`)

	// qaPrefixRe matches leading list markers and P:/R:/Q:/A: labels.
	qaPrefixRe = regexp.MustCompile(`(?i)^(?:[-*•]+\s*|\d{1,2}\s*[.)]\s*)*(?:(?:\*\*)?(?:p|r|q|a|pergunta|resposta|question|answer)\s*[:.)]\s*(?:\*\*)?\s*)?`)
)

// cleanFAQLines strips fences, JSON punctuation and labels from raw and
// returns its non-empty lines.
func cleanFAQLines(raw string) []string {
	text := jsonNoiseRe.ReplaceAllString(repair.StripFences(raw), "")
	text = valueSepRe.ReplaceAllString(text, "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		l = qaPrefixRe.ReplaceAllString(l, "")
		l = strings.Trim(l, ` ",*`)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// parseQuestionLines pairs each line ending in "?" with the non-question
// lines that follow it.
func parseQuestionLines(raw string) ([]types.FAQEntry, error) {
	lines := cleanFAQLines(raw)
	var out []types.FAQEntry
	for i := 0; i < len(lines) && len(out) < MaxFAQ; i++ {
		if !strings.HasSuffix(lines[i], "?") {
			continue
		}
		var answer []string
		j := i + 1
		for ; j < len(lines) && !strings.HasSuffix(lines[j], "?"); j++ {
			answer = append(answer, lines[j])
		}
		if len(answer) > 0 {
			out = append(out, types.FAQEntry{Question: lines[i], Answer: strings.Join(answer, " ")})
		}
		i = j - 1
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

// bulletLines is the last-resort fallback: every cleaned non-empty line.
func bulletLines(raw string) []string {
	return cleanFAQLines(raw)
}

// faqHeading opens the FAQ block appended to the description.
const faqHeading = "\n\n**Perguntas Frequentes:**\n"

// FormatFAQ renders entries, or bullets when there are no entries, as the
// block appended to the description. It returns "" when both are empty.
func FormatFAQ(entries []types.FAQEntry, bullets []string) string {
	var b strings.Builder
	switch {
	case len(entries) > 0:
		for _, e := range entries {
			fmt.Fprintf(&b, "\n**P:** %s\n**R:** %s\n", e.Question, e.Answer)
		}
	case len(bullets) > 0:
		for _, l := range bullets {
			fmt.Fprintf(&b, "\n• %s\n", l)
		}
	default:
		return ""
	}
	return faqHeading + b.String()
}

// faqStage generates question/answer pairs. Parsing failures are not stage
// errors: the raw text is kept for assembly.
type faqStage struct {
	model  llm.Model
	logger *zap.Logger
}

func (*faqStage) Name() string { return StageFAQ }

func (st *faqStage) Run(ctx context.Context, s State) Update {
	if s.Context == "" {
		return failed(StageFAQ, ErrNoContext)
	}
	prompt, err := render(faqPromptTmpl, struct {
		Context string
		Count   int
	}{s.Context, MaxFAQ})
	if err != nil {
		return failed(StageFAQ, fmt.Errorf("rendering prompt: %w", err))
	}
	raw, err := st.model.Invoke(ctx, prompt)
	if err != nil {
		return failed(StageFAQ, fmt.Errorf("invoking model: %w", err))
	}

	rec := RecoverFAQ(raw)
	if len(rec.Entries) == 0 {
		st.logger.Info("FAQ output not structured, keeping raw text", zap.Int("bytes", len(raw)))
	} else {
		st.logger.Debug("FAQ parsed", zap.Int("count", len(rec.Entries)), zap.String("strategy", rec.Strategy))
	}
	return Update{Stage: StageFAQ, RawFAQ: raw, FAQ: rec.Entries}
}
