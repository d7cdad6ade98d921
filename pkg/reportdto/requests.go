package reportdto

type ParseRequest struct {
	PGN string `json:"pgn"`
}

type ParseResponse struct {
	Positions []Position        `json:"positions"`
	Tags      map[string]string `json:"tags,omitempty"`
	Result    string            `json:"result,omitempty"`
}

type ReportRequest struct {
	Positions []Position `json:"positions"`
}

type ReportResponse struct {
	Results *Report `json:"results"`
}

type EvaluateRequest struct {
	FEN string `json:"fen"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Stream frame types sent on the report websocket.
const (
	FrameProgress = "progress"
	FrameReport   = "report"
	FrameError    = "error"
)

// StreamFrame is one websocket message. Progress frames carry Done/Total,
// the final frame carries Report or Message.
type StreamFrame struct {
	Type    string  `json:"type"`
	Done    int     `json:"done,omitempty"`
	Total   int     `json:"total,omitempty"`
	Report  *Report `json:"report,omitempty"`
	Message string  `json:"message,omitempty"`
}
