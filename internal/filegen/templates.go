package filegen

import (
	"strings"

	"github.com/xxxsen/ragcore/internal/model"
)

// templateVars holds every placeholder §4.9's templates reference.
// baseContent is empty for a fresh generation; when it is non-empty the
// edit variant of the type's template is used instead.
type templateVars struct {
	Prompt      string
	Context     string
	ProjectName string
	Subject     string
	BaseContent string
}

func (v templateVars) fill(tpl string) string {
	r := strings.NewReplacer(
		"{prompt}", v.Prompt,
		"{context}", v.Context,
		"{projectName}", v.ProjectName,
		"{subject}", v.Subject,
		"{baseContent}", v.BaseContent,
	)
	return r.Replace(tpl)
}

var freshTemplates = map[model.FileType]string{
	model.FileTypeStudyGuide: "Você é um assistente educacional. Crie um guia de estudos completo e bem organizado em Markdown sobre \"{subject}\", para o projeto \"{projectName}\".\n\nPedido do usuário: {prompt}\n\nContexto extraído dos documentos do projeto:\n{context}\n\nOrganize o guia com títulos, subtítulos, listas e destaque os conceitos-chave em negrito.",
	model.FileTypeQuiz:       "Você é um assistente educacional. Crie um quiz de múltipla escolha em Markdown sobre \"{subject}\", para o projeto \"{projectName}\".\n\nPedido do usuário: {prompt}\n\nContexto extraído dos documentos do projeto:\n{context}\n\nSiga exatamente esta estrutura Markdown:\n## Instructions\n<instruções breves para quem vai responder>\n\n## Questions\n### Question 1\n<enunciado>\nA. <alternativa>\nB. <alternativa>\nC. <alternativa>\nD. <alternativa>\n\n(repita ### Question N para cada pergunta)\n\n## Gabarito (Answer Key)\n<lista das respostas corretas por número>",
	model.FileTypeSummary:    "Você é um assistente educacional. Escreva um resumo claro e conciso em Markdown sobre \"{subject}\", para o projeto \"{projectName}\".\n\nPedido do usuário: {prompt}\n\nContexto extraído dos documentos do projeto:\n{context}\n\nUse parágrafos curtos e, quando fizer sentido, listas com os pontos principais.",
	model.FileTypeLessonPlan: "Você é um assistente educacional. Elabore um plano de aula em Markdown sobre \"{subject}\", para o projeto \"{projectName}\".\n\nPedido do usuário: {prompt}\n\nContexto extraído dos documentos do projeto:\n{context}\n\nInclua objetivos de aprendizagem, duração estimada, atividades passo a passo e uma forma de avaliação.",
	model.FileTypeCustom:     "Você é um assistente educacional. Atenda ao pedido abaixo em Markdown, para o projeto \"{projectName}\".\n\nPedido do usuário: {prompt}\n\nContexto extraído dos documentos do projeto:\n{context}",
}

var editTemplates = map[model.FileType]string{
	model.FileTypeStudyGuide: "Você é um assistente educacional revisando um guia de estudos existente sobre \"{subject}\", do projeto \"{projectName}\".\n\nConteúdo atual (versão anterior):\n{baseContent}\n\nPedido de edição: {prompt}\n\nContexto adicional dos documentos do projeto:\n{context}\n\nProduza a versão revisada completa em Markdown, preservando a estrutura original sempre que possível.",
	model.FileTypeQuiz:       "Você é um assistente educacional revisando um quiz existente sobre \"{subject}\", do projeto \"{projectName}\".\n\nConteúdo atual (versão anterior):\n{baseContent}\n\nPedido de edição: {prompt}\n\nContexto adicional dos documentos do projeto:\n{context}\n\nProduza a versão revisada completa, mantendo exatamente a estrutura Markdown:\n## Instructions / ## Questions com ### Question N e alternativas A. B. C. D. / ## Gabarito (Answer Key).",
	model.FileTypeSummary:    "Você é um assistente educacional revisando um resumo existente sobre \"{subject}\", do projeto \"{projectName}\".\n\nConteúdo atual (versão anterior):\n{baseContent}\n\nPedido de edição: {prompt}\n\nContexto adicional dos documentos do projeto:\n{context}\n\nProduza a versão revisada completa em Markdown.",
	model.FileTypeLessonPlan: "Você é um assistente educacional revisando um plano de aula existente sobre \"{subject}\", do projeto \"{projectName}\".\n\nConteúdo atual (versão anterior):\n{baseContent}\n\nPedido de edição: {prompt}\n\nContexto adicional dos documentos do projeto:\n{context}\n\nProduza a versão revisada completa em Markdown.",
	model.FileTypeCustom:     "Você é um assistente educacional revisando um documento existente do projeto \"{projectName}\".\n\nConteúdo atual (versão anterior):\n{baseContent}\n\nPedido de edição: {prompt}\n\nContexto adicional dos documentos do projeto:\n{context}\n\nProduza a versão revisada completa em Markdown.",
}

// buildPrompt selects the edit template when baseContent is non-empty
// (§4.9 step 3: "For genuine edits ... use the edit template; otherwise
// the fresh-generation template") and fills in every placeholder.
func buildPrompt(t model.FileType, vars templateVars) string {
	set := freshTemplates
	if vars.BaseContent != "" {
		set = editTemplates
	}
	tpl, ok := set[t]
	if !ok {
		tpl = set[model.FileTypeCustom]
	}
	return vars.fill(tpl)
}
