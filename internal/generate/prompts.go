// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"text/template"
)

var titlesPromptTmpl = template.Must(template.New("titles").Parse(`Você é um especialista em títulos de anúncios de marketplace.
Com base no contexto abaixo, escreva exatamente 5 títulos alternativos para o produto.

Regras obrigatórias:
- Cada título deve ter entre {{.Target}} e {{.Budget}} caracteres (90% a 100% do limite).
- LIMITE MÁXIMO ABSOLUTO: {{.Budget}} caracteres, contando espaços. Títulos maiores são rejeitados pelo marketplace.
- Comece pelo tipo de produto, depois marca, modelo e o principal diferencial.
- Use os termos de busca em tendência quando forem pertinentes.
- Não use emojis, aspas, pontuação decorativa ou palavras em caixa alta desnecessárias.
- Responda com um título por linha, sem numeração e sem comentários.

Contexto:
{{.Context}}
`))

var descriptionPromptTmpl = template.Must(template.New("description").Parse(`Você é um redator de anúncios de marketplace.
Com base no contexto abaixo, escreva uma descrição completa e persuasiva do produto.

Estrutura:
- Parágrafo de abertura com o principal benefício.
- Seção de características técnicas em linhas curtas.
- Seção de uso e cuidados.
- Conteúdo da embalagem, quando conhecido.
Use apenas fatos presentes no contexto. Não inclua links, telefones ou menções a outros sites.
Não inclua perguntas frequentes; elas são geradas separadamente.

Contexto:
{{.Context}}
`))

var attributesPromptTmpl = template.Must(template.New("attributes").Parse(`Você preenche fichas técnicas de anúncios de marketplace.
Com base no contexto abaixo, sugira valores para os atributos da categoria, priorizando os obrigatórios.

Responda SOMENTE com um objeto JSON plano: cada chave é o nome do atributo e cada valor é uma string.
Use null quando não houver informação suficiente para um atributo. Não use objetos aninhados.

Exemplo:
{"Marca": "Arno", "Voltagem": "220V", "Cor": null}

Contexto:
{{.Context}}
`))

var classificationPromptTmpl = template.Must(template.New("classification").Parse(`Você é um especialista em classificação fiscal de mercadorias (NCM).
Sugira os 3 códigos mais prováveis para o produto, do mais confiável para o menos confiável,
cada um com uma justificativa técnica.

ID da categoria: {{.CategoryID}}

Descrição gerada:
` + "```" + `
{{.Description}}
` + "```" + `

Atributos preenchidos:
` + "```" + `
{{range .Attributes}}- {{.}}
{{end}}` + "```" + `

Atributos da categoria (referência):
` + "```" + `
{{range .CategoryAttributes}}- {{.}}
{{end}}` + "```" + `

Responda com uma lista JSON de até 3 objetos com as chaves "code" (formato XXXX.XX.XX ou "N/A"),
"explanation" (string) e "confidence" ("Alta", "Média" ou "Baixa"), ordenada da maior para a menor confiança.
Se for impossível classificar, responda com um único objeto com code "N/A" e confidence "Baixa".
`))

var faqPromptTmpl = template.Must(template.New("faq").Parse(`Você escreve perguntas frequentes para anúncios de marketplace.
Com base no contexto abaixo, crie {{.Count}} pares de pergunta e resposta que eliminem as principais dúvidas
e objeções do comprador. Use apenas fatos presentes no contexto.

Responda SOMENTE com uma lista JSON de objetos com as chaves "pergunta" e "resposta".

Exemplo:
[{"pergunta": "Funciona em 110V?", "resposta": "Não, o modelo é exclusivo para 220V."}]

Contexto:
{{.Context}}
`))

// render executes tmpl with data.
func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
