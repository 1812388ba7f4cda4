package service

import (
	"context"
	"fmt"

	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/textstream"
)

type userMessageProducer struct {
	chatService IChatService
	llmProvider llm.LLMProvider
	llmOptions  []llm.Option
	logger      logger.ILogger
}

// NewUserMessageProducer resolves producers for stream records owned by
// general chat messages. The reply continues the user's conversation.
func NewUserMessageProducer(
	chatService IChatService,
	llmProvider llm.LLMProvider,
	logger logger.ILogger,
	llmOptions ...llm.Option,
) IProducerResolver {
	return &userMessageProducer{
		chatService: chatService,
		llmProvider: llmProvider,
		llmOptions:  llmOptions,
		logger:      logger,
	}
}

func (p *userMessageProducer) Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*StreamProducer, error) {
	message, err := p.chatService.FindMessageByStreamID(ctx, streamId)
	if err != nil {
		return nil, err
	}
	if message == nil || message.Id.String() != owner.ID {
		return nil, fmt.Errorf("%w: no chat message for stream %s", ErrNoProducer, streamId)
	}

	history, err := p.chatService.History(ctx, message)
	if err != nil {
		return nil, err
	}
	history = append([]llm.Message{{Role: constant.ChatMessageRoleSystem, Content: constant.ChatSystemPromptV1}}, history...)

	p.logger.Debug("CHAT", "Resolved chat producer", map[string]interface{}{
		"stream_id": streamId,
		"history":   len(history),
	})
	return &StreamProducer{Produce: streamReply(p.llmProvider, history, p.llmOptions)}, nil
}
