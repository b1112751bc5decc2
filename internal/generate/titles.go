// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// Title budget bounds. Budgets are counted in runes.
const (
	DefaultTitleBudget = 60
	MinTitleBudget     = 10
	MaxTitleBudget     = 300

	// MaxTitles is the number of candidates a run returns at most.
	MaxTitles = 5
)

// ErrNoTitles is recorded when the model output holds no usable line.
var ErrNoTitles = errors.New("no title candidates in model output")

// ClampBudget returns b when it lies in [MinTitleBudget, MaxTitleBudget].
// Otherwise it returns DefaultTitleBudget and false.
func ClampBudget(b int) (int, bool) {
	if b < MinTitleBudget || b > MaxTitleBudget {
		return DefaultTitleBudget, false
	}
	return b, true
}

// ResolveBudget picks the effective budget for a run: a positive override
// wins, then the per-category entry, then the configured default. Category
// ids match case-insensitively against upper-case keys. The result is
// always within the sane range.
func ResolveBudget(override int, categoryID string, cfg types.GenerationConfig) (int, bool) {
	b := cfg.TitleBudget
	if b == 0 {
		b = DefaultTitleBudget
	}
	if v, ok := cfg.CategoryBudgets[strings.ToUpper(strings.TrimSpace(categoryID))]; ok {
		b = v
	}
	if override > 0 {
		b = override
	}
	return ClampBudget(b)
}

// TruncateTitle shortens title to at most budget runes. It cuts at the last
// whitespace at or before rune index budget and drops trailing whitespace;
// with no whitespace there it cuts hard at budget.
func TruncateTitle(title string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(title) <= budget {
		return title
	}
	runes := []rune(title)
	for i := budget; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			if cut := strings.TrimRightFunc(string(runes[:i]), unicode.IsSpace); cut != "" {
				return cut
			}
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:budget]), unicode.IsSpace)
}

var (
	// A list number needs whitespace after its terminator, so "10.000 BTU"
	// and "2-Pack" keep their leading numbers.
	titleMarkerRe = regexp.MustCompile(`^\s*(?:[*•]+\s*|[-–]+\s+|\d{1,2}[.)]\s+|\d{1,2}\s+[-–]\s+|#+\s*)+`)
	titleLabelRe  = regexp.MustCompile(`(?i)^(?:t[íi]tulo|title)\s*\d*\s*[:：-]\s*`)
)

// ParseTitles splits raw model output into at most MaxTitles candidates,
// each no longer than budget runes. List markers, labels, surrounding quotes
// and emphasis are stripped; blank and preamble lines are skipped.
func ParseTitles(raw string, budget int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		t := cleanTitleLine(line)
		if t == "" || strings.HasSuffix(t, ":") {
			continue
		}
		t = TruncateTitle(t, budget)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == MaxTitles {
			break
		}
	}
	return out
}

func cleanTitleLine(line string) string {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "```") {
		return ""
	}
	t = titleMarkerRe.ReplaceAllString(t, "")
	t = titleLabelRe.ReplaceAllString(t, "")
	t = strings.Trim(t, "*_`")
	t = strings.Trim(t, `"'“”`)
	return strings.TrimSpace(t)
}

// titleStage generates budget-bound title candidates.
type titleStage struct {
	model  llm.Model
	logger *zap.Logger
}

func (*titleStage) Name() string { return StageTitles }

func (st *titleStage) Run(ctx context.Context, s State) Update {
	if s.Context == "" {
		return failed(StageTitles, ErrNoContext)
	}

	budget, ok := ClampBudget(s.TitleBudget)
	if !ok {
		st.logger.Warn("title budget out of range, using default",
			zap.Int("budget", s.TitleBudget), zap.Int("default", budget))
	}

	prompt, err := render(titlesPromptTmpl, struct {
		Context        string
		Budget, Target int
	}{s.Context, budget, budget * 9 / 10})
	if err != nil {
		return failed(StageTitles, fmt.Errorf("rendering prompt: %w", err))
	}

	raw, err := st.model.Invoke(ctx, prompt)
	if err != nil {
		return failed(StageTitles, fmt.Errorf("invoking model: %w", err))
	}

	titles := ParseTitles(raw, budget)
	st.logger.Debug("titles parsed", zap.Int("count", len(titles)), zap.Int("budget", budget))
	if len(titles) == 0 {
		return Update{Stage: StageTitles, RawTitles: raw, Err: ErrNoTitles}
	}
	return Update{Stage: StageTitles, RawTitles: raw, Titles: titles}
}
