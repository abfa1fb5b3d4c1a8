package engine

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
)

const basePrompt = `You are the assistant of a health management service that helps people understand
mental wellbeing and depression risk factors. Answer in plain language, keep replies short,
and never present yourself as a substitute for a qualified professional.
If someone mentions self-harm or suicidal thoughts, encourage them to contact local
emergency services or a crisis line right away.`

// systemPrompt returns the base instructions plus the knowledge passages
// selected for query, if any pass the relevance gates.
func systemPrompt(kb knowledge.Index, query string, threshold float64) string {
	sel, ok := knowledge.Select(kb, query, threshold)
	if !ok {
		return basePrompt + "\n\nNo reference material matched this question. If you cannot answer reliably, say so."
	}
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nReference material:")
	for _, p := range sel.Passages {
		b.WriteString("\n- ")
		if p.Section != "" {
			b.WriteString("[")
			b.WriteString(p.Section)
			b.WriteString("] ")
		}
		b.WriteString(p.Snippet)
	}
	return b.String()
}

// historyMessages converts persisted messages into chat template history.
func historyMessages(msgs []domain.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
