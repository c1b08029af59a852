package filegen

import "strings"

// quizQuestion is one parsed "### Question N" block.
type quizQuestion struct {
	Number  int
	Prompt  string
	Options []string
}

// quizDocument is the structured shape the model's quiz output is parsed
// into, per §4.9 step 5: instructions, numbered questions with lettered
// options, and an answer key rendered on its own page.
type quizDocument struct {
	Instructions string
	Questions    []quizQuestion
	AnswerKey    string
}

// parseQuiz recognizes the "## Instructions / ## Questions / ### Question
// N / A. ... / ## Gabarito (Answer Key)" shape the quiz template mandates.
// ok is false when the input doesn't match that shape closely enough to
// parse, in which case the caller falls back to rendering it as plain
// markdown-ish prose.
func parseQuiz(body string) (quizDocument, bool) {
	var doc quizDocument
	var section string
	var question *quizQuestion
	var found bool

	flushQuestion := func() {
		if question != nil {
			doc.Questions = append(doc.Questions, *question)
			question = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "## Instructions"):
			flushQuestion()
			section = "instructions"
			found = true
			continue
		case strings.HasPrefix(trimmed, "## Questions"):
			flushQuestion()
			section = "questions"
			found = true
			continue
		case strings.HasPrefix(trimmed, "## Gabarito"):
			flushQuestion()
			section = "answers"
			found = true
			continue
		case strings.HasPrefix(trimmed, "### Question"):
			flushQuestion()
			question = &quizQuestion{Number: len(doc.Questions) + 1}
			continue
		}

		switch section {
		case "instructions":
			if trimmed != "" {
				doc.Instructions = appendLine(doc.Instructions, trimmed)
			}
		case "questions":
			if question == nil || trimmed == "" {
				continue
			}
			if isOptionLine(trimmed) {
				question.Options = append(question.Options, trimmed)
			} else {
				question.Prompt = appendLine(question.Prompt, trimmed)
			}
		case "answers":
			if trimmed != "" {
				doc.AnswerKey = appendLine(doc.AnswerKey, trimmed)
			}
		}
	}
	flushQuestion()

	if !found || len(doc.Questions) == 0 {
		return quizDocument{}, false
	}
	return doc, true
}

func appendLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + " " + line
}

// isOptionLine recognizes "A. ...", "B) ...", etc.
func isOptionLine(line string) bool {
	if len(line) < 2 {
		return false
	}
	first := line[0]
	if first < 'A' || first > 'Z' {
		return false
	}
	return line[1] == '.' || line[1] == ')'
}
