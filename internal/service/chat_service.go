package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/internal/repository/specification"
	"conflict-resolution-be/internal/repository/unitofwork"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
)

// IChatService is the general chat: one running conversation per user,
// outside any conflict.
type IChatService interface {
	SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendChatMessageRequest) (*dto.SendChatMessageResponse, error)
	ListMessages(ctx context.Context, userId uuid.UUID) ([]*dto.ChatMessageResponse, error)
	ClearMessages(ctx context.Context, userId uuid.UUID) (*dto.ClearChatMessagesResponse, error)

	FindMessageByStreamID(ctx context.Context, streamId string) (*entity.UserMessage, error)
	History(ctx context.Context, upTo *entity.UserMessage) ([]llm.Message, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	streams    contract.StreamRecordRepository
	logger     logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, streams contract.StreamRecordRepository, logger logger.ILogger) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		streams:    streams,
		logger:     logger,
	}
}

func (s *chatService) SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendChatMessageRequest) (*dto.SendChatMessageResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", ErrInvalidInput)
	}

	messageId := uuid.New()
	streamId, err := s.streams.CreateOwned(ctx, textstream.Owner{
		Type: constant.StreamOwnerUserMessage,
		ID:   messageId.String(),
	})
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	message := entity.UserMessage{
		Id:               messageId,
		UserId:           userId,
		Prompt:           prompt,
		ResponseStreamId: streamId,
		CreatedAt:        time.Now(),
	}
	if err := uow.UserMessageRepository().Create(ctx, &message); err != nil {
		return nil, err
	}

	return &dto.SendChatMessageResponse{
		MessageId: message.Id,
		StreamId:  streamId,
	}, nil
}

func (s *chatService) ListMessages(ctx context.Context, userId uuid.UUID) ([]*dto.ChatMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.UserMessageRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res := &dto.ChatMessageResponse{
			Id:        m.Id,
			Prompt:    m.Prompt,
			StreamId:  m.ResponseStreamId,
			CreatedAt: m.CreatedAt,
		}
		snap, err := s.streams.Read(ctx, m.ResponseStreamId)
		switch {
		case err == nil:
			res.Response = toStreamBody(snap)
		case !errors.Is(err, textstream.ErrNotFound):
			return nil, err
		}
		result = append(result, res)
	}
	return result, nil
}

// ClearMessages deletes the user's chat. Stream records are left to expire.
func (s *chatService) ClearMessages(ctx context.Context, userId uuid.UUID) (*dto.ClearChatMessagesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.UserMessageRepository().DeleteByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}

	s.logger.Info("CHAT", "Chat cleared", map[string]interface{}{
		"user_id": userId.String(),
		"deleted": n,
	})
	return &dto.ClearChatMessagesResponse{Deleted: n}, nil
}

func (s *chatService) FindMessageByStreamID(ctx context.Context, streamId string) (*entity.UserMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.UserMessageRepository().FindOne(ctx, specification.ByResponseStreamID{StreamID: streamId})
}

// History rebuilds the conversation of upTo's author, ending with upTo's
// prompt. Later messages and empty responses are left out.
func (s *chatService) History(ctx context.Context, upTo *entity.UserMessage) ([]llm.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.UserMessageRepository().FindAll(ctx,
		specification.ByUserID{UserID: upTo.UserId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages)*2)
	for _, m := range messages {
		history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: m.Prompt})
		if m.Id == upTo.Id {
			break
		}

		snap, err := s.streams.Read(ctx, m.ResponseStreamId)
		if err != nil {
			if errors.Is(err, textstream.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if snap.Text != "" {
			history = append(history, llm.Message{Role: constant.ChatMessageRoleAssistant, Content: snap.Text})
		}
	}
	return history, nil
}
