package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conflict struct {
	Id                 uuid.UUID
	Title              string
	Description        string
	CreatedBy          uuid.UUID
	CreatorEmail       string
	Status             string
	InterviewCompleted bool
	Completion         *ConflictCompletion
	CreatorResponses   []CreatorResponse
	Analysis           *ConflictAnalysis
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	DeletedAt          *time.Time
	IsDeleted          bool
}

// ConflictCompletion is the payload recorded when the interview ends early.
type ConflictCompletion struct {
	Message     string    `json:"completion_message"`
	CompletedAt time.Time `json:"completed_at"`
}

// CreatorResponse is one answered question of the creator's questionnaire.
type CreatorResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// ConflictAnalysis is the structured result that resolves a conflict.
type ConflictAnalysis struct {
	RootCauseAnalysis       string    `json:"rootCauseAnalysis"`
	CreatorPerspective      string    `json:"creatorPerspective"`
	ActionableSteps         []string  `json:"actionableSteps"`
	CommunicationStrategies []string  `json:"communicationStrategies"`
	GeneratedAt             time.Time `json:"generatedAt"`
}

type ConflictMessage struct {
	Id               uuid.UUID
	ConflictId       uuid.UUID
	UserId           uuid.UUID
	Prompt           string
	ResponseStreamId string
	Type             string
	CreatedAt        time.Time
}

// ConflictStats counts the conflicts of one creator by status.
type ConflictStats struct {
	Total      int64
	Draft      int64
	InProgress int64
	Resolved   int64
	Archived   int64
}
