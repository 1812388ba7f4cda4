package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConflictRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
}

type UpdateConflictRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
}

type ListConflictsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=draft interview in_progress analyzing resolved archived"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type UpdateConflictStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft interview in_progress analyzing resolved archived"`
}

type ConflictCompletionResponse struct {
	Message     string    `json:"completion_message"`
	CompletedAt time.Time `json:"completed_at"`
}

type ConflictResponse struct {
	Id                 uuid.UUID                   `json:"id"`
	Title              string                      `json:"title"`
	Description        string                      `json:"description"`
	Status             string                      `json:"status"`
	CreatedBy          uuid.UUID                   `json:"created_by"`
	InterviewCompleted bool                        `json:"interview_completed"`
	Completion         *ConflictCompletionResponse `json:"completion,omitempty"`
	CreatorResponses   []CreatorResponseItem       `json:"creator_responses,omitempty"`
	Analysis           *ConflictAnalysisResponse   `json:"analysis,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          *time.Time                  `json:"updated_at"`
}

type ConflictStatsResponse struct {
	Total      int64 `json:"total"`
	Draft      int64 `json:"draft"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Archived   int64 `json:"archived"`
}

type SendConflictMessageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Type   string `json:"type" validate:"omitempty,oneof=interview owner_analysis participant_analysis"`
}

type SendConflictMessageResponse struct {
	MessageId uuid.UUID `json:"message_id"`
	StreamId  string    `json:"stream_id"`
}

type ConflictMessageResponse struct {
	Id        uuid.UUID           `json:"id"`
	Prompt    string              `json:"prompt"`
	Type      string              `json:"type"`
	StreamId  string              `json:"stream_id"`
	Response  *StreamBodyResponse `json:"response,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type CompleteInterviewRequest struct {
	CompletionMessage string `json:"completion_message"`
}

type SendInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CreatorResponseItem struct {
	Question  string    `json:"question" validate:"required"`
	Answer    string    `json:"answer" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

type AddCreatorResponsesRequest struct {
	Responses []CreatorResponseItem `json:"responses" validate:"required,min=1,dive"`
}

type AddAnalysisRequest struct {
	RootCauseAnalysis       string   `json:"rootCauseAnalysis" validate:"required"`
	CreatorPerspective      string   `json:"creatorPerspective" validate:"required"`
	ActionableSteps         []string `json:"actionableSteps" validate:"required,min=1,dive,required"`
	CommunicationStrategies []string `json:"communicationStrategies" validate:"required,min=1,dive,required"`
}

type ConflictAnalysisResponse struct {
	RootCauseAnalysis       string    `json:"rootCauseAnalysis"`
	CreatorPerspective      string    `json:"creatorPerspective"`
	ActionableSteps         []string  `json:"actionableSteps"`
	CommunicationStrategies []string  `json:"communicationStrategies"`
	GeneratedAt             time.Time `json:"generatedAt"`
}
