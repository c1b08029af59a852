package filegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleQuiz = `## Instructions
Escolha a alternativa correta para cada pergunta.

## Questions
### Question 1
Qual organela realiza a fotossíntese?
A. Mitocôndria
B. Cloroplasto
C. Ribossomo
D. Núcleo

### Question 2
O que a fotossíntese produz?
A. Dióxido de carbono
B. Glicose e oxigênio
C. Água
D. Nitrogênio

## Gabarito (Answer Key)
1. B
2. B
`

func TestParseQuizExtractsInstructionsQuestionsAndAnswerKey(t *testing.T) {
	doc, ok := parseQuiz(sampleQuiz)
	require.True(t, ok)
	require.Contains(t, doc.Instructions, "Escolha a alternativa")
	require.Len(t, doc.Questions, 2)
	require.Equal(t, 1, doc.Questions[0].Number)
	require.Len(t, doc.Questions[0].Options, 4)
	require.Contains(t, doc.Questions[0].Options[1], "Cloroplasto")
	require.Contains(t, doc.AnswerKey, "1. B")
}

func TestParseQuizFailsOnPlainMarkdown(t *testing.T) {
	_, ok := parseQuiz("# Just a heading\n\nSome prose, no quiz structure here.")
	require.False(t, ok)
}
