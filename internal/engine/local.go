package engine

import (
	"context"
	"errors"
	"unicode"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
)

// Decline is the reply LocalModel gives when no passage is relevant enough.
const Decline = "I can't answer that from the information I have. Please consult a qualified professional."

// LocalModel is a chat model that answers the latest user message straight
// from the knowledge base. It is used when no hosted model is configured.
type LocalModel struct {
	Index     knowledge.Index
	Threshold float64
}

var _ model.ChatModel = (*LocalModel)(nil)

// Generate implements model.BaseChatModel.
func (m *LocalModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, ok := lastUserContent(input)
	if !ok {
		return nil, errors.New("local model: no user message in input")
	}
	sel, ok := knowledge.Select(m.Index, query, m.Threshold)
	if !ok {
		return schema.AssistantMessage(Decline, nil), nil
	}
	return schema.AssistantMessage(sel.Text(), nil), nil
}

// Stream implements model.BaseChatModel by emitting the generated answer one
// word (with its trailing whitespace) per fragment.
func (m *LocalModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	parts := splitFragments(msg.Content)
	chunks := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, schema.AssistantMessage(p, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

// BindTools implements model.ChatModel. LocalModel has no tool support.
func (m *LocalModel) BindTools([]*schema.ToolInfo) error { return nil }

func lastUserContent(input []*schema.Message) (string, bool) {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			return input[i].Content, true
		}
	}
	return "", false
}

// splitFragments cuts s before every word that follows whitespace, so the
// fragments concatenate back to s exactly.
func splitFragments(s string) []string {
	var (
		out       []string
		start     int
		prevSpace bool
	)
	for i, r := range s {
		sp := unicode.IsSpace(r)
		if !sp && prevSpace && i > start {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = sp
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
