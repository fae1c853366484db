package aiclient

import "fmt"

const systemPrompt = "You are an intelligent programming assistant that helps users write, debug " +
	"and learn code. Give accurate and useful answers."

func contextMessage(context string) string {
	return "Context:\n" + context
}

func explainPrompt(code, language string) string {
	return fmt.Sprintf("Explain what the following %s code does and how it works:\n\n```%s\n%s\n```\n\n"+
		"Describe its logic and purpose in detail.", language, language, code)
}

func completePrompt(code, language string) string {
	return fmt.Sprintf("Suggest a completion for the following %s code:\n\n```%s\n%s\n```\n\n"+
		"Return only the completed code, without explanation.", language, language, code)
}

// buildMessages returns the system instruction, the optional context and
// the user prompt, in that order.
func buildMessages(prompt, context string) []Message {
	msgs := make([]Message, 0, 3)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	if context != "" {
		msgs = append(msgs, Message{Role: "user", Content: contextMessage(context)})
	}
	return append(msgs, Message{Role: "user", Content: prompt})
}
