package classifier

import (
	"strings"

	"github.com/shopspring/decimal"
)

// buildPrompt asks for exactly one label from the closed set.
func buildPrompt(description string, amount decimal.Decimal, labels []string) string {
	var b strings.Builder
	b.WriteString("You are a personal finance categorization assistant.\n")
	b.WriteString("Categorize the transaction into exactly one of the following categories: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Reply with the category name ONLY, exactly as listed.\n")
	b.WriteString("- Do NOT add punctuation, quotes, Markdown or an explanation.\n")
	b.WriteString("- Negative amounts are money spent, positive amounts are money received.\n\n")
	b.WriteString("Transaction: \"" + description + "\"\n")
	b.WriteString("Amount: " + amount.String() + "\n")
	return b.String()
}

// cleanModelLabel strips code fences and surrounding whitespace from the
// model answer and keeps only its first line.
func cleanModelLabel(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.Trim(s, "`")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
