// Package pgn reads the first game of a PGN document into tag pairs and an
// ordered list of SAN move tokens. It does not check move legality.
package pgn

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmpty   = errors.New("pgn is empty")
	ErrNoGame  = errors.New("pgn contains no game")
	ErrInvalid = errors.New("invalid pgn")
)

// SyntaxError reports where the movetext stopped making sense.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid pgn at %d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalid }

type Tag struct {
	Name  string
	Value string
}

// MoveToken is one ply as written in the record.
type MoveToken struct {
	Ply     int    // 0-based position in Record.Moves
	Number  int    // full-move number counted from the standard start
	SAN     string // as written, check/mate suffix kept, glyphs moved to NAGs
	NAGs    []int
	Comment string
}

// White reports whether the token is a white move when the game starts
// from the standard position.
func (m MoveToken) White() bool { return m.Ply%2 == 0 }

type Record struct {
	Tags   []Tag
	Moves  []MoveToken
	Result string
}

// Tag returns the value of the first tag with the given name.
func (r *Record) Tag(name string) string {
	if r == nil {
		return ""
	}
	for _, t := range r.Tags {
		if strings.EqualFold(t.Name, name) {
			return t.Value
		}
	}
	return ""
}

func (r *Record) TagMap() map[string]string {
	if r == nil || len(r.Tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Tags))
	for _, t := range r.Tags {
		if _, dup := out[t.Name]; dup {
			continue
		}
		out[t.Name] = t.Value
	}
	return out
}

// SANs returns the move list in ply order.
func (r *Record) SANs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Moves))
	for i, m := range r.Moves {
		out[i] = m.SAN
	}
	return out
}

// Tokens builds move tokens from bare SAN strings, numbering them from the
// standard start. Used by callers that already hold a move list.
func Tokens(sans ...string) []MoveToken {
	out := make([]MoveToken, len(sans))
	for i, s := range sans {
		out[i] = MoveToken{Ply: i, Number: i/2 + 1, SAN: s}
	}
	return out
}
