// Package prompt builds the natural-language prompts sent to the
// generative-text backend. Builders are pure text construction: they accept
// any inputs, including empty strings, and always succeed. The model is
// expected to degrade gracefully on nonsense input, so nothing here validates.
package prompt

import (
	"fmt"
	"strings"
)

// QuestionCount is the number of question/answer pairs requested from the
// model when generating an interview.
const QuestionCount = 5

// BuildGeneration builds the prompt that asks the model for a question set
// tailored to a role. All four inputs are embedded verbatim.
func BuildGeneration(position, description, techStack string, experience int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate %d interview Q&A JSON array for:\n", QuestionCount))
	sb.WriteString("Role: " + position + "\n")
	sb.WriteString("Description: " + description + "\n")
	sb.WriteString("Tech: " + techStack + "\n")
	sb.WriteString(fmt.Sprintf("Experience: %d\n", experience))
	sb.WriteString("Only return valid JSON:\n")
	sb.WriteString("[\n  { \"question\": \"\", \"answer\": \"\" }\n]\n")
	return sb.String()
}

// BuildScoring builds the prompt that asks the model to rate a user's answer
// against the reference answer.
func BuildScoring(question, referenceAnswer, userAnswer string) string {
	var sb strings.Builder
	sb.WriteString("Question: \"" + question + "\"\n")
	sb.WriteString("User Answer: \"" + userAnswer + "\"\n")
	sb.WriteString("Correct Answer: \"" + referenceAnswer + "\"\n")
	sb.WriteString("Rate answer 1-10 and give brief feedback.\n")
	sb.WriteString(`Respond in JSON: { "ratings": number, "feedback": string }`)
	sb.WriteString("\n")
	return sb.String()
}
