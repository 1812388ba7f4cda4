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
	"conflict-resolution-be/internal/pkg/mailer"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/internal/repository/specification"
	"conflict-resolution-be/internal/repository/unitofwork"
	"conflict-resolution-be/pkg/events"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
)

type IConflictService interface {
	Create(ctx context.Context, userId uuid.UUID, creatorEmail string, req *dto.CreateConflictRequest) (*dto.ConflictResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID, query dto.ListConflictsQuery) ([]*dto.ConflictResponse, error)
	Show(ctx context.Context, userId, id uuid.UUID) (*dto.ConflictResponse, error)
	Update(ctx context.Context, userId, id uuid.UUID, req *dto.UpdateConflictRequest) (*dto.ConflictResponse, error)
	UpdateStatus(ctx context.Context, userId, id uuid.UUID, req *dto.UpdateConflictStatusRequest) (*dto.ConflictResponse, error)
	Delete(ctx context.Context, userId, id uuid.UUID) error
	Stats(ctx context.Context, userId uuid.UUID) (*dto.ConflictStatsResponse, error)

	SendMessage(ctx context.Context, userId, conflictId uuid.UUID, req *dto.SendConflictMessageRequest) (*dto.SendConflictMessageResponse, error)
	GetMessages(ctx context.Context, userId, conflictId uuid.UUID) ([]*dto.ConflictMessageResponse, error)
	MarkInterviewCompleted(ctx context.Context, userId, conflictId uuid.UUID, completionMessage string) (*dto.ConflictResponse, error)
	SendInvitation(ctx context.Context, userId uuid.UUID, inviterEmail string, conflictId uuid.UUID, req *dto.SendInvitationRequest) error
	AddCreatorResponses(ctx context.Context, userId, conflictId uuid.UUID, req *dto.AddCreatorResponsesRequest) (*dto.ConflictResponse, error)
	AddAnalysis(ctx context.Context, userId, conflictId uuid.UUID, req *dto.AddAnalysisRequest) (*dto.ConflictResponse, error)

	// Internal operations, used by the stream producer without a user context.
	MarkInterviewCompletedInternal(ctx context.Context, conflictId uuid.UUID, completionMessage string) error
	FindMessageByStreamID(ctx context.Context, streamId string) (*entity.ConflictMessage, error)
	FindConflict(ctx context.Context, id uuid.UUID) (*entity.Conflict, error)
	InterviewHistory(ctx context.Context, conflictId uuid.UUID) ([]llm.Message, error)
	NotifyInterviewCompleted(ctx context.Context, conflictId uuid.UUID, completionMessage string) error
}

type conflictService struct {
	uowFactory unitofwork.RepositoryFactory
	streams    contract.StreamRecordRepository
	publisher  IEventPublisher
	mailer     mailer.IEmailService
	clientURL  string
	logger     logger.ILogger
}

func NewConflictService(
	uowFactory unitofwork.RepositoryFactory,
	streams contract.StreamRecordRepository,
	publisher IEventPublisher,
	mailer mailer.IEmailService,
	clientURL string,
	logger logger.ILogger,
) IConflictService {
	return &conflictService{
		uowFactory: uowFactory,
		streams:    streams,
		publisher:  publisher,
		mailer:     mailer,
		clientURL:  clientURL,
		logger:     logger,
	}
}

func toConflictResponse(c *entity.Conflict) *dto.ConflictResponse {
	res := &dto.ConflictResponse{
		Id:                 c.Id,
		Title:              c.Title,
		Description:        c.Description,
		Status:             c.Status,
		CreatedBy:          c.CreatedBy,
		InterviewCompleted: c.InterviewCompleted,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if c.Completion != nil {
		res.Completion = &dto.ConflictCompletionResponse{
			Message:     c.Completion.Message,
			CompletedAt: c.Completion.CompletedAt,
		}
	}
	for _, r := range c.CreatorResponses {
		res.CreatorResponses = append(res.CreatorResponses, dto.CreatorResponseItem{
			Question:  r.Question,
			Answer:    r.Answer,
			Timestamp: r.Timestamp,
		})
	}
	if c.Analysis != nil {
		res.Analysis = &dto.ConflictAnalysisResponse{
			RootCauseAnalysis:       c.Analysis.RootCauseAnalysis,
			CreatorPerspective:      c.Analysis.CreatorPerspective,
			ActionableSteps:         c.Analysis.ActionableSteps,
			CommunicationStrategies: c.Analysis.CommunicationStrategies,
			GeneratedAt:             c.Analysis.GeneratedAt,
		}
	}
	return res
}

// loadOwned returns the conflict if userId created it.
func (s *conflictService) loadOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Conflict, error) {
	conflict, err := uow.ConflictRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, ErrConflictNotFound
	}
	if conflict.CreatedBy != userId {
		return nil, ErrUnauthorized
	}
	return conflict, nil
}

func (s *conflictService) Create(ctx context.Context, userId uuid.UUID, creatorEmail string, req *dto.CreateConflictRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict := entity.Conflict{
		Id:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		CreatedBy:    userId,
		CreatorEmail: creatorEmail,
		Status:       constant.ConflictStatusDraft,
		CreatedAt:    time.Now(),
	}
	if err := uow.ConflictRepository().Create(ctx, &conflict); err != nil {
		return nil, err
	}
	return toConflictResponse(&conflict), nil
}

func (s *conflictService) GetAll(ctx context.Context, userId uuid.UUID, query dto.ListConflictsQuery) ([]*dto.ConflictResponse, error) {
	specs := []specification.Specification{
		specification.ByCreator{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if query.Status != "" {
		specs = append(specs, specification.ByStatus{Status: query.Status})
	}
	if query.Limit > 0 {
		page := query.Page
		if page < 1 {
			page = 1
		}
		specs = append(specs, specification.Pagination{Limit: query.Limit, Offset: (page - 1) * query.Limit})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflicts, err := uow.ConflictRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		result = append(result, toConflictResponse(c))
	}
	return result, nil
}

func (s *conflictService) Show(ctx context.Context, userId, id uuid.UUID) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	return toConflictResponse(conflict), nil
}

func (s *conflictService) Update(ctx context.Context, userId, id uuid.UUID, req *dto.UpdateConflictRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}

	conflict.Title = req.Title
	conflict.Description = req.Description
	if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
		return nil, err
	}
	return toConflictResponse(conflict), nil
}

func (s *conflictService) UpdateStatus(ctx context.Context, userId, id uuid.UUID, req *dto.UpdateConflictStatusRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}

	conflict.Status = req.Status
	if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
		return nil, err
	}
	return toConflictResponse(conflict), nil
}

// Delete removes the conflict and its messages. Their stream records stay.
func (s *conflictService) Delete(ctx context.Context, userId, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.loadOwned(ctx, uow, userId, id); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ConflictMessageRepository().DeleteByConflictId(ctx, id); err != nil {
		return err
	}
	if err := uow.ConflictRepository().Delete(ctx, id); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *conflictService) Stats(ctx context.Context, userId uuid.UUID) (*dto.ConflictStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	counts, err := uow.ConflictRepository().CountByStatus(ctx, userId)
	if err != nil {
		return nil, err
	}

	stats := &dto.ConflictStatsResponse{
		Draft:      counts[constant.ConflictStatusDraft],
		InProgress: counts[constant.ConflictStatusInProgress],
		Resolved:   counts[constant.ConflictStatusResolved],
		Archived:   counts[constant.ConflictStatusArchived],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// SendMessage records a prompt and the pending stream record its response
// will be produced into. The first interview message moves a draft conflict
// to interview.
func (s *conflictService) SendMessage(ctx context.Context, userId, conflictId uuid.UUID, req *dto.SendConflictMessageRequest) (*dto.SendConflictMessageResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", ErrInvalidInput)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, conflictId)
	if err != nil {
		return nil, err
	}

	messageType := req.Type
	if messageType == "" {
		messageType = constant.MessageTypeInterview
	}
	messageId := uuid.New()

	// Orphaned records (message insert failed) are timed out by the expiry worker.
	streamId, err := s.streams.CreateOwned(ctx, textstream.Owner{
		Type: constant.StreamOwnerConflictMessage,
		ID:   messageId.String(),
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	message := entity.ConflictMessage{
		Id:               messageId,
		ConflictId:       conflict.Id,
		UserId:           userId,
		Prompt:           prompt,
		ResponseStreamId: streamId,
		Type:             messageType,
		CreatedAt:        time.Now(),
	}
	if err := uow.ConflictMessageRepository().Create(ctx, &message); err != nil {
		return nil, err
	}

	if messageType == constant.MessageTypeInterview && conflict.Status == constant.ConflictStatusDraft {
		conflict.Status = constant.ConflictStatusInterview
		if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.SendConflictMessageResponse{
		MessageId: message.Id,
		StreamId:  streamId,
	}, nil
}

func (s *conflictService) GetMessages(ctx context.Context, userId, conflictId uuid.UUID) ([]*dto.ConflictMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.loadOwned(ctx, uow, userId, conflictId); err != nil {
		return nil, err
	}

	messages, err := uow.ConflictMessageRepository().FindAll(ctx,
		specification.ByConflictID{ConflictID: conflictId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ConflictMessageResponse, 0, len(messages))
	for _, m := range messages {
		res := &dto.ConflictMessageResponse{
			Id:        m.Id,
			Prompt:    m.Prompt,
			Type:      m.Type,
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

func (s *conflictService) MarkInterviewCompleted(ctx context.Context, userId, conflictId uuid.UUID, completionMessage string) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.loadOwned(ctx, uow, userId, conflictId); err != nil {
		return nil, err
	}
	if err := s.MarkInterviewCompletedInternal(ctx, conflictId, completionMessage); err != nil {
		return nil, err
	}
	return s.Show(ctx, userId, conflictId)
}

// MarkInterviewCompletedInternal moves the conflict to in_progress and records
// the completion. Repeated calls keep the first completion.
func (s *conflictService) MarkInterviewCompletedInternal(ctx context.Context, conflictId uuid.UUID, completionMessage string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := uow.ConflictRepository().FindOne(ctx, specification.ByID{ID: conflictId})
	if err != nil {
		return err
	}
	if conflict == nil {
		return ErrConflictNotFound
	}
	if conflict.InterviewCompleted {
		return nil
	}

	conflict.Status = constant.ConflictStatusInProgress
	conflict.InterviewCompleted = true
	conflict.Completion = &entity.ConflictCompletion{
		Message:     completionMessage,
		CompletedAt: time.Now(),
	}
	if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
		return err
	}

	event := events.NewInterviewCompleted(conflictId.String(), conflict.CreatedBy.String(), completionMessage)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("CONFLICT", "Failed to publish interview completed event", map[string]interface{}{
			"conflict_id": conflictId.String(),
			"error":       err.Error(),
		})
	}

	s.logger.Info("CONFLICT", "Interview completed", map[string]interface{}{
		"conflict_id": conflictId.String(),
	})
	return nil
}

func (s *conflictService) SendInvitation(ctx context.Context, userId uuid.UUID, inviterEmail string, conflictId uuid.UUID, req *dto.SendInvitationRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, conflictId)
	if err != nil {
		return err
	}
	if inviterEmail == "" {
		inviterEmail = conflict.CreatorEmail
	}

	link := s.conflictLink(conflict.Id)
	if err := s.mailer.SendInvitation(req.Email, inviterEmail, conflict.Title, link); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	return nil
}

// AddCreatorResponses replaces the creator's questionnaire answers and moves
// the conflict to in_progress.
func (s *conflictService) AddCreatorResponses(ctx context.Context, userId, conflictId uuid.UUID, req *dto.AddCreatorResponsesRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, conflictId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	responses := make([]entity.CreatorResponse, 0, len(req.Responses))
	for _, r := range req.Responses {
		answer := strings.TrimSpace(r.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: answer to %q is empty", ErrInvalidInput, r.Question)
		}
		ts := r.Timestamp
		if ts.IsZero() {
			ts = now
		}
		responses = append(responses, entity.CreatorResponse{Question: r.Question, Answer: answer, Timestamp: ts})
	}

	conflict.CreatorResponses = responses
	conflict.Status = constant.ConflictStatusInProgress
	if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
		return nil, err
	}

	s.logger.Info("CONFLICT", "Creator responses recorded", map[string]interface{}{
		"conflict_id": conflictId.String(),
		"responses":   len(responses),
	})
	return toConflictResponse(conflict), nil
}

// AddAnalysis stores the analysis and resolves the conflict.
func (s *conflictService) AddAnalysis(ctx context.Context, userId, conflictId uuid.UUID, req *dto.AddAnalysisRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := s.loadOwned(ctx, uow, userId, conflictId)
	if err != nil {
		return nil, err
	}

	conflict.Analysis = &entity.ConflictAnalysis{
		RootCauseAnalysis:       req.RootCauseAnalysis,
		CreatorPerspective:      req.CreatorPerspective,
		ActionableSteps:         req.ActionableSteps,
		CommunicationStrategies: req.CommunicationStrategies,
		GeneratedAt:             time.Now(),
	}
	conflict.Status = constant.ConflictStatusResolved
	if err := uow.ConflictRepository().Update(ctx, conflict); err != nil {
		return nil, err
	}

	s.logger.Info("CONFLICT", "Conflict resolved with analysis", map[string]interface{}{
		"conflict_id": conflictId.String(),
	})
	return toConflictResponse(conflict), nil
}

func (s *conflictService) conflictLink(id uuid.UUID) string {
	return fmt.Sprintf("%s/conflict/%s", s.clientURL, id)
}

func (s *conflictService) FindMessageByStreamID(ctx context.Context, streamId string) (*entity.ConflictMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ConflictMessageRepository().FindOne(ctx, specification.ByResponseStreamID{StreamID: streamId})
}

func (s *conflictService) FindConflict(ctx context.Context, id uuid.UUID) (*entity.Conflict, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conflict, err := uow.ConflictRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, ErrConflictNotFound
	}
	return conflict, nil
}

// InterviewHistory rebuilds the chat from interview messages: every prompt
// followed by its response text. Responses with no text yet are skipped.
func (s *conflictService) InterviewHistory(ctx context.Context, conflictId uuid.UUID) ([]llm.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ConflictMessageRepository().FindAll(ctx,
		specification.ByConflictID{ConflictID: conflictId},
		specification.ByMessageType{Type: constant.MessageTypeInterview},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages)*2)
	for _, m := range messages {
		history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: m.Prompt})

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

// NotifyInterviewCompleted emails the conflict creator.
func (s *conflictService) NotifyInterviewCompleted(ctx context.Context, conflictId uuid.UUID, completionMessage string) error {
	conflict, err := s.FindConflict(ctx, conflictId)
	if err != nil {
		return err
	}
	if conflict.CreatorEmail == "" {
		return nil
	}
	return s.mailer.SendInterviewCompleted(conflict.CreatorEmail, conflict.Title, completionMessage, s.conflictLink(conflict.Id))
}
