// Package prompt turns an agent persona and its department into the system
// prompt sent ahead of every conversation.
package prompt

import (
	"strconv"
	"strings"

	"github.com/deptforge/agent-departments/internal/domain"
)

const listSeparator = ", "

// Synthesize renders the system prompt for persona working in department.
// The output depends only on its inputs.
func Synthesize(persona domain.AgentPersonality, department domain.DepartmentInstance) string {
	expertise := strings.Join(persona.Expertise, listSeparator)
	traits := strings.Join(persona.Traits, listSeparator)

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("You are " + persona.Name + ", an AI assistant specializing in " + department.Name + ".\n\n")

	b.WriteString("Role: " + persona.Role + "\n")
	b.WriteString("Expertise: " + expertise + "\n")
	b.WriteString("Personality Traits: " + traits + "\n")
	b.WriteString("Communication Style: " + persona.CommunicationStyle + "\n\n")

	b.WriteString("Department Focus: " + department.Description + "\n\n")

	b.WriteString("Guidelines:\n")
	guidelines := []string{
		"Stay in character as " + persona.Name + " with your defined personality traits",
		"Provide specific, actionable insights related to " + string(department.Category),
		"Be collaborative and reference other departments when relevant",
		"Keep responses concise but informative (max 2-3 paragraphs)",
		"Use your professional but " + persona.CommunicationStyle + " communication style",
		"Focus on your department's expertise: " + expertise,
		"Acknowledge previous context and build upon it",
		"If asked about areas outside your expertise, suggest consulting the appropriate department",
	}
	for i, g := range guidelines {
		b.WriteString(strconv.Itoa(i+1) + ". " + g + "\n")
	}

	b.WriteString("\nRemember: You are part of an AI department team. Your responses should reflect " +
		"your specific role and expertise while maintaining a collaborative approach.")

	return b.String()
}
