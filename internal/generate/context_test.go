// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listing-engine/pkg/types"
)

func TestBuildContext(t *testing.T) {
	price := 249.9
	longDesc := strings.Repeat("Descrição longa do concorrente. ", 200)
	brief := types.ProductBrief{
		CategoryID: "MLB1246",
		Name:       "Ventilador de Teto",
		Brand:      "Arno",
		EAN:        "7891234567890",
	}
	market := types.MarketContext{
		Trends: []string{"ventilador de teto", "ventilador silencioso", "ventilador com luz"},
		Attributes: []types.AttributeDef{
			{ID: "BRAND", Name: "Marca", Required: true},
			{ID: "COLOR", Name: "Cor"},
		},
		Competitors: []types.CompetitorSnapshot{{
			ItemID:      "MLB123",
			Title:       "Ventilador Teto Arno",
			Price:       &price,
			Attributes:  map[string]string{"Voltagem": "220V", "Cor": "Branco"},
			Description: longDesc,
		}},
	}

	got, err := BuildContext(brief, market)
	require.NoError(t, err)

	for _, want := range []string{
		"- Nome Base: Ventilador de Teto",
		"- Marca: Arno",
		"- EAN: 7891234567890",
		"- Categoria ID: MLB1246",
		"- ventilador silencioso",
		"### Obrigatórios:\n- Marca (Obrigatório)",
		"### Outros:\n- Cor (Opcional)",
		"### Concorrente 1 (ID: MLB123):",
		"- Preço: 249.90",
		"  - Cor: Branco\n  - Voltagem: 220V",
		strings.TrimSpace(longDesc),
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "- Modelo:")
}

func TestBuildContext_Limits(t *testing.T) {
	var market types.MarketContext
	for i := 0; i < 30; i++ {
		market.Trends = append(market.Trends, fmt.Sprintf("trend-%02d", i))
		market.Attributes = append(market.Attributes, types.AttributeDef{Name: fmt.Sprintf("opt-%02d", i)})
	}
	for i := 0; i < 8; i++ {
		market.Competitors = append(market.Competitors, types.CompetitorSnapshot{ItemID: fmt.Sprintf("MLB%d", i)})
	}

	got, err := BuildContext(types.ProductBrief{Name: "X", CategoryID: "C1"}, market)
	require.NoError(t, err)

	assert.Contains(t, got, "trend-19")
	assert.NotContains(t, got, "trend-20")
	assert.Contains(t, got, "opt-14")
	assert.NotContains(t, got, "opt-15")
	assert.Contains(t, got, "Concorrente 5 ")
	assert.NotContains(t, got, "Concorrente 6 ")
}

func TestBuildContext_EmptyMarket(t *testing.T) {
	got, err := BuildContext(types.ProductBrief{Name: "X", CategoryID: "C1"}, types.MarketContext{})
	require.NoError(t, err)
	assert.Contains(t, got, "Tendências de Busca: Nenhuma encontrada.")
	assert.Contains(t, got, "Atributos da Categoria: Nenhum encontrado.")
	assert.Contains(t, got, "Análise de Concorrentes: Nenhum analisado.")
}

func TestBuildContext_NoName(t *testing.T) {
	_, err := BuildContext(types.ProductBrief{CategoryID: "C1"}, types.MarketContext{})
	assert.Error(t, err)
}
