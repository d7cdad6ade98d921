package reportdto

// MoveDescriptor is the move that produced a position.
type MoveDescriptor struct {
	SAN string `json:"san"`
	UCI string `json:"uci"`
}

// Position is one element of a parsed game. Move is absent on the first
// element.
type Position struct {
	FEN  string          `json:"fen"`
	Move *MoveDescriptor `json:"move,omitempty"`
}
