// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// Context section limits.
const (
	maxContextTrends      = 20
	maxOptionalAttributes = 15
	maxCompetitors        = 5
)

// BuildContext folds the brief and market research into the text blob every
// generation stage reads. Competitor descriptions are never truncated.
func BuildContext(brief types.ProductBrief, market types.MarketContext) (string, error) {
	if strings.TrimSpace(brief.Name) == "" {
		return "", fmt.Errorf("formatting context: brief has no product name")
	}

	var b strings.Builder

	b.WriteString("## Dados do Seu Produto:\n")
	fmt.Fprintf(&b, "- Nome Base: %s\n", brief.Name)
	if brief.Brand != "" {
		fmt.Fprintf(&b, "- Marca: %s\n", brief.Brand)
	}
	if brief.Model != "" {
		fmt.Fprintf(&b, "- Modelo: %s\n", brief.Model)
	}
	if brief.EAN != "" {
		fmt.Fprintf(&b, "- EAN: %s\n", brief.EAN)
	}
	if d := strings.TrimSpace(brief.Description); d != "" {
		b.WriteString("- Descrição Detalhada Fornecida:\n")
		writeBlock(&b, d)
	}
	fmt.Fprintf(&b, "- Categoria ID: %s\n\n", brief.CategoryID)

	if trends := head(market.Trends, maxContextTrends); len(trends) > 0 {
		b.WriteString("## Tendências de Busca Relevantes (Termos mais buscados):\n")
		for _, t := range trends {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("## Tendências de Busca: Nenhuma encontrada.\n\n")
	}

	required := market.RequiredAttributes()
	optional := head(market.OptionalAttributes(), maxOptionalAttributes)
	if len(required)+len(optional) > 0 {
		b.WriteString("## Atributos Importantes da Categoria (Ficha Técnica):\n")
		if len(required) > 0 {
			b.WriteString("### Obrigatórios:\n")
			for _, a := range required {
				fmt.Fprintf(&b, "- %s (Obrigatório)\n", a.Name)
			}
		}
		if len(optional) > 0 {
			b.WriteString("### Outros:\n")
			for _, a := range optional {
				fmt.Fprintf(&b, "- %s (Opcional)\n", a.Name)
			}
		}
		b.WriteString("\n")
	} else {
		b.WriteString("## Atributos da Categoria: Nenhum encontrado.\n\n")
	}

	if comps := head(market.Competitors, maxCompetitors); len(comps) > 0 {
		b.WriteString("## Análise de Concorrentes:\n")
		for i, c := range comps {
			fmt.Fprintf(&b, "### Concorrente %d (ID: %s):\n", i+1, c.ItemID)
			fmt.Fprintf(&b, "- Título: %s\n", c.Title)
			if c.Price != nil {
				fmt.Fprintf(&b, "- Preço: %.2f\n", *c.Price)
			}
			if len(c.Attributes) > 0 {
				b.WriteString("- Atributos Preenchidos:\n")
				for _, k := range sortedKeys(c.Attributes) {
					fmt.Fprintf(&b, "  - %s: %s\n", k, c.Attributes[k])
				}
			}
			if d := strings.TrimSpace(c.Description); d != "" {
				b.WriteString("- Descrição Completa do Concorrente:\n")
				writeBlock(&b, d)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("## Análise de Concorrentes: Nenhum analisado.\n")
	}

	return strings.TrimSpace(b.String()), nil
}

func writeBlock(b *strings.Builder, text string) {
	b.WriteString("  ```\n")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
	b.WriteString("  ```\n")
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// contextStage prepares the shared context blob.
type contextStage struct{}

func (contextStage) Name() string { return StageContext }

func (contextStage) Run(_ context.Context, s State) Update {
	if s.Brief == nil {
		return failed(StageContext, fmt.Errorf("%w: no product brief", ErrNoContext))
	}
	var market types.MarketContext
	if s.Market != nil {
		market = *s.Market
	}
	blob, err := BuildContext(*s.Brief, market)
	if err != nil {
		return failed(StageContext, err)
	}
	return Update{Stage: StageContext, Context: blob}
}
