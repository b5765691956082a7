package prompt

import (
	"strings"

	"vaultrag/internal/domain"
)

// DefaultTemplate instructs the model to answer from retrieved vault
// context. It must contain the {context} and {question} placeholders.
const DefaultTemplate = `You are a technical assistant with access to project memory.
Based on the following context from previous work sessions, answer the question.

Context:
{context}

Question: {question}

Answer with specific details, commands, configurations, and recommendations when relevant:`

// Boundary separates retrieved chunks inside the context block.
const Boundary = "\n\n---\n\n"

// NoContextMarker replaces an empty context block so the model degrades
// gracefully instead of inventing an answer from a blank context.
const NoContextMarker = "No relevant context found."

// Assemble formats the retrieved chunks (in retrieval order, i.e. by
// descending similarity) and the question into a single model-ready prompt.
// An empty template falls back to DefaultTemplate.
func Assemble(results []domain.RetrievalResult, question, template string) string {
	if template == "" {
		template = DefaultTemplate
	}
	context := NoContextMarker
	if len(results) > 0 {
		texts := make([]string, len(results))
		for i, r := range results {
			texts[i] = r.Chunk.Text
		}
		context = strings.Join(texts, Boundary)
	}
	out := strings.ReplaceAll(template, "{context}", context)
	return strings.ReplaceAll(out, "{question}", question)
}
