package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
)

const completionHookTimeout = 15 * time.Second

// completeInterviewArgs is the argument object of the complete_interview call.
type completeInterviewArgs struct {
	CompletionMessage string `json:"completion_message"`
}

var completeInterviewTool = llm.Tool{
	Name:        constant.CompleteInterviewTool,
	Description: constant.CompleteInterviewToolDescription,
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"completion_message": map[string]interface{}{
				"type":        "string",
				"description": "A short closing message thanking the person.",
			},
		},
		"required": []string{"completion_message"},
	},
}

type conflictMessageProducer struct {
	conflictService IConflictService
	llmProvider     llm.LLMProvider
	llmOptions      []llm.Option
	logger          logger.ILogger
}

// NewConflictMessageProducer resolves producers for stream records owned by
// conflict messages. Interview messages continue the interview and may end it
// through the complete_interview call; analysis messages answer once.
func NewConflictMessageProducer(
	conflictService IConflictService,
	llmProvider llm.LLMProvider,
	logger logger.ILogger,
	llmOptions ...llm.Option,
) IProducerResolver {
	return &conflictMessageProducer{
		conflictService: conflictService,
		llmProvider:     llmProvider,
		llmOptions:      llmOptions,
		logger:          logger,
	}
}

func (p *conflictMessageProducer) Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*StreamProducer, error) {
	message, err := p.conflictService.FindMessageByStreamID(ctx, streamId)
	if err != nil {
		return nil, err
	}
	if message == nil || message.Id.String() != owner.ID {
		return nil, fmt.Errorf("%w: no conflict message for stream %s", ErrNoProducer, streamId)
	}

	conflict, err := p.conflictService.FindConflict(ctx, message.ConflictId)
	if err != nil {
		return nil, err
	}

	if message.Type != constant.MessageTypeInterview {
		history := []llm.Message{
			{Role: constant.ChatMessageRoleSystem, Content: fmt.Sprintf(constant.AnalysisSystemPromptV1, conflict.Title, conflict.Description)},
			{Role: constant.ChatMessageRoleUser, Content: message.Prompt},
		}
		return &StreamProducer{Produce: streamReply(p.llmProvider, history, p.llmOptions)}, nil
	}

	history, err := p.conflictService.InterviewHistory(ctx, conflict.Id)
	if err != nil {
		return nil, err
	}
	system := llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: fmt.Sprintf(constant.InterviewSystemPromptV1, conflict.Title, conflict.Description, conflict.CreatedAt.Format("2006-01-02")),
	}
	history = append([]llm.Message{system}, history...)

	opts := append(append([]llm.Option{}, p.llmOptions...), llm.WithTools(completeInterviewTool))
	return &StreamProducer{
		Produce: streamReply(p.llmProvider, history, opts),
		Signal:  p.completeInterview(conflict),
	}, nil
}

// streamReply turns a streamed model reply into fragments: content as text,
// tool calls as control signals.
func streamReply(provider llm.LLMProvider, history []llm.Message, opts []llm.Option) textstream.ProduceFunc {
	return func(ctx context.Context, emit textstream.EmitFunc) error {
		return provider.StreamChat(ctx, history, func(chunk llm.StreamChunk) error {
			if chunk.Content != "" {
				if err := emit(textstream.Fragment{Text: chunk.Content}); err != nil {
					return err
				}
			}
			if chunk.ToolCall != nil {
				return emit(textstream.Fragment{Signal: &textstream.Signal{
					Name:      chunk.ToolCall.Name,
					Arguments: chunk.ToolCall.Arguments,
				}})
			}
			return nil
		}, opts...)
	}
}

func (p *conflictMessageProducer) completeInterview(conflict *entity.Conflict) textstream.SignalHandler {
	return func(ctx context.Context, sig textstream.Signal) (textstream.SignalResult, error) {
		if sig.Name != constant.CompleteInterviewTool {
			return textstream.SignalResult{}, fmt.Errorf("%w: unknown function %q", textstream.ErrControlSignalParse, sig.Name)
		}

		var args completeInterviewArgs
		if err := json.Unmarshal([]byte(sig.Arguments), &args); err != nil {
			return textstream.SignalResult{}, fmt.Errorf("%w: %v", textstream.ErrControlSignalParse, err)
		}
		message := strings.TrimSpace(args.CompletionMessage)

		go p.markCompleted(conflict.Id, message)

		return textstream.SignalResult{Text: message, Stop: true}, nil
	}
}

// markCompleted runs detached from the request; the stream does not wait for it.
func (p *conflictMessageProducer) markCompleted(conflictId uuid.UUID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), completionHookTimeout)
	defer cancel()

	if err := p.conflictService.MarkInterviewCompletedInternal(ctx, conflictId, message); err != nil {
		p.logger.Error("INTERVIEW", "Failed to mark interview completed", map[string]interface{}{
			"conflict_id": conflictId.String(),
			"error":       err.Error(),
		})
	}
}
