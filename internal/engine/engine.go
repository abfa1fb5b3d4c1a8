// Package engine implements the conversational engine behind POST /chat.
//
// AgentEngine runs an eino chain (chat template → chat model) over the recent
// history of a thread, relays the model's fragments to the caller in the
// order they are produced, and persists the completed turn before signalling
// end of stream. A turn that fails at any point persists nothing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
)

// RunName labels every persisted turn in message metadata.
const RunName = "chat_turn"

// Engine is the contract the chat gateway depends on.
type Engine interface {
	// Stream starts a turn for threadID and returns the reply as an ordered
	// stream of fragments. The caller must Close the reader.
	Stream(ctx context.Context, threadID string, msg *schema.Message) (*schema.StreamReader[*schema.Message], error)
	// Threads lists every persisted thread id, oldest first.
	Threads(ctx context.Context) ([]string, error)
}

// Options tunes AgentEngine.
type Options struct {
	Knowledge    knowledge.Index
	Threshold    float64
	HistoryLimit int
}

// AgentEngine is the sqlite-backed Engine.
type AgentEngine struct {
	db    *gorm.DB
	chain compose.Runnable[map[string]any, *schema.Message]
	opts  Options
}

var _ Engine = (*AgentEngine)(nil)

// New compiles the chat chain around m.
func New(ctx context.Context, db *gorm.DB, m model.BaseChatModel, opts Options) (*AgentEngine, error) {
	if db == nil {
		return nil, errors.New("engine: nil db")
	}
	if m == nil {
		return nil, errors.New("engine: nil chat model")
	}

	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(m)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}
	return &AgentEngine{db: db, chain: runnable, opts: opts}, nil
}

// Stream implements Engine.
func (e *AgentEngine) Stream(ctx context.Context, threadID string, msg *schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if msg == nil {
		return nil, errors.New("engine: nil message")
	}
	tr := otel.Tracer("engine/AgentEngine")
	ctx, span := tr.Start(ctx, "Stream", trace.WithAttributes(
		attribute.String("thread.id", threadID),
		attribute.String("run.name", RunName),
	))

	history, err := repo.RecentMessages(ctx, e.db, threadID, e.opts.HistoryLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load history")
		span.End()
		return nil, fmt.Errorf("load history: %w", err)
	}

	input := map[string]any{
		"system":  systemPrompt(e.opts.Knowledge, msg.Content, e.opts.Threshold),
		"history": historyMessages(history),
		"query":   msg.Content,
	}
	upstream, err := e.chain.Stream(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain stream")
		span.End()
		return nil, fmt.Errorf("run chat chain: %w", err)
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer span.End()
		e.relay(ctx, span, threadID, msg.Content, upstream, sw)
	}()
	return sr, nil
}

// relay forwards upstream fragments to sw in order. On upstream EOF it
// persists the turn and only then closes sw, so a consumer that sees io.EOF
// can rely on the turn being stored.
func (e *AgentEngine) relay(
	ctx context.Context,
	span trace.Span,
	threadID, userText string,
	upstream *schema.StreamReader[*schema.Message],
	sw *schema.StreamWriter[*schema.Message],
) {
	defer sw.Close()
	defer upstream.Close()

	lg := zerolog.Ctx(ctx).With().Str("thread_id", threadID).Logger()

	var (
		reply     strings.Builder
		fragments int
	)
	for {
		chunk, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upstream")
			sw.Send(nil, err)
			return
		}
		if chunk == nil {
			continue
		}
		reply.WriteString(chunk.Content)
		fragments++
		if closed := sw.Send(chunk, nil); closed {
			// Consumer went away; the turn is abandoned.
			lg.Debug().Int("fragments", fragments).Msg("engine: consumer closed stream early")
			return
		}
	}

	if err := e.persist(ctx, threadID, userText, reply.String()); err != nil {
		lg.Error().Err(err).Int("fragments", fragments).Msg("engine: persist turn failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		sw.Send(nil, fmt.Errorf("persist turn: %w", err))
		return
	}
	span.SetAttributes(attribute.Int("fragments", fragments))
	lg.Debug().Int("fragments", fragments).Msg("engine: turn persisted")
}

// persist stores the thread (titled after its first message), the user
// message and the assistant reply in one transaction.
func (e *AgentEngine) persist(ctx context.Context, threadID, userText, reply string) error {
	meta := map[string]any{"thread_id": threadID, "run_name": RunName}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.EnsureThread(ctx, tx, threadID, threadTitle(userText)); err != nil {
			return err
		}
		if _, err := repo.CreateMessage(ctx, tx, threadID, domain.RoleUser, userText, nil); err != nil {
			return err
		}
		_, err := repo.CreateMessage(ctx, tx, threadID, domain.RoleAssistant, reply, meta)
		return err
	})
}

// Threads implements Engine.
func (e *AgentEngine) Threads(ctx context.Context) ([]string, error) {
	tr := otel.Tracer("engine/AgentEngine")
	ctx, span := tr.Start(ctx, "Threads")
	defer span.End()

	ids, err := repo.ListThreadIDs(ctx, e.db)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list threads: %w", err)
	}
	span.SetAttributes(attribute.Int("threads", len(ids)))
	return ids, nil
}
