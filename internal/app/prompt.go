package app

import "strings"

// NotAvailableAnswer is what the model must reply when the retrieved context
// does not contain the answer.
const NotAvailableAnswer = "Answer is not available in the context."

const answerPromptTemplate = `Answer the question as completely as you can using only the supplied context.

Formatting rules:
Do not use bullet points, dashes or numbering.
Write every point on its own plain line.
Leave one empty line after each line.
Keep unrelated ideas on separate lines.

If the context does not contain the answer, reply with exactly "` + NotAvailableAnswer + `" and nothing else. Never guess.

Context:
{context}

Question:
{question}

Answer:
`

// contextSeparator joins retrieved chunks into one context block.
const contextSeparator = "\n\n"

func buildAnswerPrompt(question string, chunks []string) string {
	return strings.NewReplacer(
		"{context}", strings.Join(chunks, contextSeparator),
		"{question}", question,
	).Replace(answerPromptTemplate)
}
