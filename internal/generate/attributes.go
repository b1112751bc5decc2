// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/internal/repair"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// listSeparator joins list-valued attributes.
const listSeparator = ", "

// ParseAttributes decodes the model's attribute block into string values.
// Code fences are stripped and, when the text carries commentary around an
// object, the first balanced object is used. Output whose outermost value is
// not a flat mapping (an array of objects included) is an error.
func ParseAttributes(raw string) (types.AttributeValues, error) {
	cleaned := repair.StripFences(raw)
	obj, err := repair.AsObject(repair.DecodeStrict(cleaned))
	if err != nil {
		if errors.Is(err, repair.ErrNotObject) || !objectOutermost(cleaned) {
			return nil, fmt.Errorf("decoding attributes: %w", err)
		}
		block, xerr := repair.ExtractObject(cleaned)
		if xerr != nil {
			return nil, fmt.Errorf("decoding attributes: %w", err)
		}
		if obj, err = repair.AsObject(repair.DecodeStrict(block)); err != nil {
			return nil, fmt.Errorf("decoding attributes: %w", err)
		}
	}
	return NormalizeAttributes(obj)
}

// objectOutermost reports whether the first bracket in s opens an object.
func objectOutermost(s string) bool {
	i := strings.IndexAny(s, "[{")
	return i >= 0 && s[i] == '{'
}

// NormalizeAttributes coerces every value to its textual form. Lists are
// joined with ", ", scalars are stringified and nil stays an explicit
// "no value" entry. Nested objects are rejected. Applying it to its own
// output yields the same mapping.
func NormalizeAttributes(m map[string]any) (types.AttributeValues, error) {
	out := make(types.AttributeValues, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case nil:
			out[k] = nil
		case []any:
			parts := make([]string, 0, len(x))
			for _, item := range x {
				if item == nil {
					continue
				}
				s, err := scalarString(item)
				if err != nil {
					return nil, fmt.Errorf("attribute %q: %w", k, err)
				}
				parts = append(parts, s)
			}
			s := strings.Join(parts, listSeparator)
			out[k] = &s
		default:
			s, err := scalarString(x)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			out[k] = &s
		}
	}
	return out, nil
}

func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case map[string]any:
		return "", fmt.Errorf("%w: nested object", repair.ErrNotObject)
	case []any:
		return "", fmt.Errorf("%w: nested list", repair.ErrNotObject)
	}
	return fmt.Sprint(v), nil
}

// attributesAsAny widens typed values back to a generic mapping.
func attributesAsAny(a types.AttributeValues) map[string]any {
	m := make(map[string]any, len(a))
	for k, v := range a {
		if v == nil {
			m[k] = nil
			continue
		}
		m[k] = *v
	}
	return m
}

// attributeStage suggests catalog attribute values.
type attributeStage struct {
	model  llm.Model
	logger *zap.Logger
}

func (*attributeStage) Name() string { return StageAttributes }

func (st *attributeStage) Run(ctx context.Context, s State) Update {
	empty := types.AttributeValues{}
	if s.Context == "" {
		return Update{Stage: StageAttributes, Attributes: empty, Err: ErrNoContext}
	}
	prompt, err := render(attributesPromptTmpl, struct{ Context string }{s.Context})
	if err != nil {
		return Update{Stage: StageAttributes, Attributes: empty, Err: fmt.Errorf("rendering prompt: %w", err)}
	}
	raw, err := st.model.Invoke(ctx, prompt)
	if err != nil {
		return Update{Stage: StageAttributes, Attributes: empty, Err: fmt.Errorf("invoking model: %w", err)}
	}
	attrs, err := ParseAttributes(raw)
	if err != nil {
		st.logger.Warn("attribute output rejected", zap.Error(err), zap.String("raw", raw))
		return Update{Stage: StageAttributes, Attributes: empty, Err: err}
	}
	st.logger.Debug("attributes parsed", zap.Int("count", len(attrs)))
	return Update{Stage: StageAttributes, Attributes: attrs}
}
