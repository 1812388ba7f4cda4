package constant

const (
	ConflictStatusDraft      = "draft"
	ConflictStatusInterview  = "interview"
	ConflictStatusInProgress = "in_progress"
	ConflictStatusAnalyzing  = "analyzing"
	ConflictStatusResolved   = "resolved"
	ConflictStatusArchived   = "archived"
)

const (
	MessageTypeInterview           = "interview"
	MessageTypeOwnerAnalysis       = "owner_analysis"
	MessageTypeParticipantAnalysis = "participant_analysis"
)

// StreamOwnerConflictMessage is the owner type recorded on stream records
// created for conflict messages.
const StreamOwnerConflictMessage = "conflict_message"

// CompleteInterviewTool is the function the interviewer calls to end the
// interview early.
const CompleteInterviewTool = "complete_interview"

// StreamOwnerUserMessage is the owner type of stream records created for
// general chat messages.
const StreamOwnerUserMessage = "user_message"
