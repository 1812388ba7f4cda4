package dto

type StartStreamRequest struct {
	StreamId string `json:"streamId" validate:"required,uuid"`
}

// StreamBodyResponse is the current state of a stream record.
type StreamBodyResponse struct {
	Id         string `json:"id"`
	Text       string `json:"text"`
	Status     string `json:"status"`
	Generation int64  `json:"generation"`
}

// StreamMessage is the websocket frame for one stream update.
type StreamMessage struct {
	Type    string             `json:"type"`
	Data    StreamBodyResponse `json:"data"`
	Driving bool               `json:"driving"`
	// Finished is set on the frame that completes a driving subscriber's action.
	Finished bool `json:"finished,omitempty"`
}
