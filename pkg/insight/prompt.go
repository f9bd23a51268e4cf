package insight

import (
	"fmt"
	"strings"
)

const insightSystemPrompt = `You are an analyst writing takeaways for a mobile game's in-app-purchase dashboard.

You will receive one dashboard question and its computed result as JSON.

Rules:
1. Answer with ONE short paragraph of plain prose, no markdown, no lists.
2. Lead with the single most decision-relevant finding; mention at most two supporting numbers.
3. Use the numbers exactly as given; never recompute or extrapolate beyond them.
4. If the result is empty or inconclusive, say so plainly instead of inventing a trend.`

// buildInsightPrompt constructs the prompt sent to Claude for a question
// result.
func buildInsightPrompt(title string, resultJSON []byte) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Question: %s\n\n", title))
	b.WriteString("Result JSON:\n")
	b.Write(resultJSON)
	b.WriteString("\n\nWrite the takeaway paragraph.\n")
	return b.String()
}
