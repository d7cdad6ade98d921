package reportdto

import "time"

type Classification string

const (
	ClassBest       Classification = "best"
	ClassExcellent  Classification = "excellent"
	ClassGood       Classification = "good"
	ClassInaccuracy Classification = "inaccuracy"
	ClassMistake    Classification = "mistake"
	ClassBlunder    Classification = "blunder"
)

// Line is one engine principal variation, scored from white's side.
type Line struct {
	Move string   `json:"move"`
	CP   int      `json:"cp"`
	Mate *int     `json:"mate,omitempty"`
	PV   []string `json:"pv,omitempty"`
}

// Evaluation is an engine verdict on a single position from white's side.
// For forced mates CP holds the clamped mate score and Mate the signed
// distance; a Mate of 0 means the side to move is checkmated.
type Evaluation struct {
	CP       int      `json:"cp"`
	Mate     *int     `json:"mate,omitempty"`
	BestMove string   `json:"bestMove,omitempty"`
	PV       []string `json:"pv,omitempty"`
	Depth    int      `json:"depth"`
	Lines    []Line   `json:"lines,omitempty"`
}

type PositionReport struct {
	Ply            int             `json:"ply"`
	FEN            string          `json:"fen"`
	Move           *MoveDescriptor `json:"move,omitempty"`
	Evaluation     Evaluation      `json:"evaluation"`
	Classification Classification  `json:"classification,omitempty"`
	CPLoss         int             `json:"cpLoss,omitempty"`
	Accuracy       float64         `json:"accuracy,omitempty"`
	BestMove       string          `json:"bestMove,omitempty"`
}

type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

type SideSummary struct {
	Accuracy     float64 `json:"accuracy"`
	Moves        int     `json:"moves"`
	Best         int     `json:"best"`
	Excellent    int     `json:"excellent"`
	Good         int     `json:"good"`
	Inaccuracies int     `json:"inaccuracies"`
	Mistakes     int     `json:"mistakes"`
	Blunders     int     `json:"blunders"`
}

type Summary struct {
	White SideSummary `json:"white"`
	Black SideSummary `json:"black"`
}

type Report struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"createdAt"`
	Opening   *Opening         `json:"opening,omitempty"`
	Positions []PositionReport `json:"positions"`
	Summary   Summary          `json:"summary"`
}
