package llm

import (
	"fmt"
	"strings"

	"secureshield-assistant/internal/models"
)

// GeneratePrompt builds a prompt that grounds the answer in the ranked
// hits, labeled [#1]..[#k] with their scores
func GeneratePrompt(query string, hits []models.Hit) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("You are a helpful assistant answering questions using the provided context.\n")
	promptBuilder.WriteString("Use only the context to answer. If missing, say you do not know.\n")
	promptBuilder.WriteString("Cite sources using bracketed numbers [#1], [#2] matching context chunks.\n\n")

	promptBuilder.WriteString("Question: " + query + "\n\n")
	promptBuilder.WriteString("Context:\n")

	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[#%d score=%.3f]\n%s", i+1, h.Score, h.Text)
	}
	promptBuilder.WriteString(strings.Join(blocks, "\n\n"))

	return promptBuilder.String()
}
