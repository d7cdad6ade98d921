package pgn

import (
	"strconv"
	"strings"
	"unicode/utf8"

	nchess "github.com/corentings/chess/v2"
)

const drawResult = "1/2-1/2"

var glyphNAGs = map[string]int{
	"!":  1,
	"?":  2,
	"!!": 3,
	"??": 4,
	"!?": 5,
	"?!": 6,
}

// Parse reads the first game in text. Later games are ignored.
func Parse(text string) (*Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	p := &parser{src: text, lex: nchess.NewLexer(blankEscapes(text))}
	rec, err := p.game()
	if err != nil {
		return nil, err
	}
	if len(rec.Tags) == 0 && len(rec.Moves) == 0 && rec.Result == "" {
		return nil, ErrNoGame
	}
	return rec, nil
}

// token is a lexer token with its byte offset in the source.
type token struct {
	nchess.Token
	start int
	end   int
}

type parser struct {
	src    string
	lex    *nchess.Lexer
	cursor int

	rec     *Record
	cur     *pendingMove
	inMoves bool
	depth   int // variation nesting; moves inside are skipped
}

// pendingMove collects the tokens of one SAN move until the next token
// starts something else.
type pendingMove struct {
	san      strings.Builder
	start    int
	end      int
	pawn     bool
	target   bool
	rank     byte
	promoted bool
	awaiting bool // "=" read, piece letter still due
	suffix   bool
}

func (m *pendingMove) write(t token) {
	m.san.WriteString(t.Value)
	m.end = t.end
}

func (p *parser) next() token {
	t := p.lex.NextToken()
	start := p.cursor
	for start < len(p.src) && isSpace(p.src[start]) {
		start++
	}
	if t.Value != "" {
		if i := strings.Index(p.src[p.cursor:], t.Value); i >= 0 {
			start = p.cursor + i
		}
	}
	end := start + len(t.Value)
	if end > len(p.src) {
		end = len(p.src)
	}
	p.cursor = end
	return token{Token: t, start: start, end: end}
}

func (p *parser) game() (*Record, error) {
	p.rec = &Record{}
	for {
		t := p.next()
		if t.Error != nil {
			return nil, p.tokenError(t)
		}
		if t.Type == nchess.EOF {
			break
		}
		if t.Type == nchess.Undefined {
			return nil, p.errorAt(t.start, "unexpected character "+strconv.Quote(t.Value))
		}

		if p.depth > 0 {
			if err := p.variationToken(t); err != nil {
				return nil, err
			}
			continue
		}

		done, err := p.topLevel(t)
		if err != nil {
			return nil, err
		}
		if done {
			return p.rec, nil
		}
	}

	if p.depth != 0 {
		return nil, p.errorAt(len(p.src), "unterminated variation")
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	return p.rec, nil
}

// topLevel handles one mainline token. It reports true once the game is
// over: a termination marker was read or the next game's tags began.
func (p *parser) topLevel(t token) (bool, error) {
	switch t.Type {
	case nchess.TagStart:
		if p.inMoves || p.rec.Result != "" {
			return true, p.flush()
		}
		tag, err := p.tag(t)
		if err != nil {
			return false, err
		}
		p.rec.Tags = append(p.rec.Tags, tag)

	case nchess.PIECE:
		if m := p.cur; m != nil && m.pawn && m.target && !m.promoted && !m.suffix &&
			(m.rank == '1' || m.rank == '8') && t.start == m.end && strings.Contains("QRBN", t.Value) {
			m.write(t)
			m.promoted = true
			return false, nil
		}
		if err := p.begin(t, false); err != nil {
			return false, err
		}

	case nchess.FILE, nchess.DeambiguationSquare, nchess.RANK:
		if p.cur == nil || p.cur.target {
			if t.Type == nchess.RANK {
				return false, p.errorAt(t.start, "unrecognised move "+strconv.Quote(p.wordAt(t.start)))
			}
			if err := p.begin(t, true); err != nil {
				return false, err
			}
			return false, nil
		}
		p.cur.write(t)

	case nchess.CAPTURE:
		if p.cur == nil || p.cur.target {
			return false, p.errorAt(t.start, "capture without a moving piece")
		}
		p.cur.write(t)

	case nchess.SQUARE:
		if p.cur == nil || p.cur.target {
			if err := p.begin(t, true); err != nil {
				return false, err
			}
		} else {
			p.cur.write(t)
		}
		p.cur.target = true
		p.cur.rank = t.Value[len(t.Value)-1]

	case nchess.PROMOTION:
		m := p.cur
		if m == nil || !m.pawn || !m.target || m.promoted || m.awaiting {
			return false, p.errorAt(t.start, "misplaced promotion")
		}
		m.write(t)
		m.awaiting = true

	case nchess.PromotionPiece:
		m := p.cur
		if m == nil || !m.awaiting {
			return false, p.errorAt(t.start, "misplaced promotion piece")
		}
		m.write(t)
		m.awaiting = false
		m.promoted = true

	case nchess.CHECK, nchess.CHECKMATE:
		if p.cur == nil || !p.cur.target || p.cur.suffix {
			return false, p.errorAt(t.start, "misplaced "+strconv.Quote(t.Value))
		}
		p.cur.write(t)
		p.cur.suffix = true

	case nchess.KingsideCastle, nchess.QueensideCastle:
		if err := p.begin(t, false); err != nil {
			return false, err
		}
		p.cur.target = true

	case nchess.MoveNumber:
		return p.number(t)

	case nchess.DOT, nchess.ELLIPSIS:
		if err := p.flush(); err != nil {
			return false, err
		}

	case nchess.NAG:
		if err := p.flush(); err != nil {
			return false, err
		}
		n, ok := nagValue(t.Value)
		if !ok {
			return false, p.errorAt(t.start, "NAG without number")
		}
		if last := p.last(); last != nil {
			last.NAGs = append(last.NAGs, n)
		}

	case nchess.CommentStart:
		if err := p.flush(); err != nil {
			return false, err
		}
		text, err := p.comment(t)
		if err != nil {
			return false, err
		}
		if last := p.last(); last != nil && text != "" {
			if last.Comment != "" {
				last.Comment += " "
			}
			last.Comment += text
		}

	case nchess.VariationStart:
		if err := p.flush(); err != nil {
			return false, err
		}
		p.depth++
		p.inMoves = true

	case nchess.VariationEnd:
		return false, p.errorAt(t.start, "unbalanced ')'")

	case nchess.RESULT:
		if err := p.flush(); err != nil {
			return false, err
		}
		p.rec.Result = t.Value
		return true, nil

	default:
		return false, p.errorAt(t.start, "unexpected "+strconv.Quote(t.Value))
	}
	return false, nil
}

// number handles the lexer's MoveNumber tokens, which also carry the
// zero-spelled castles, null moves and the first half of a drawn result.
func (p *parser) number(t token) (bool, error) {
	if err := p.flush(); err != nil {
		return false, err
	}
	p.inMoves = true
	v := t.Value
	if isDigits(v) {
		if strings.HasPrefix(p.src[t.start:], drawResult) {
			p.rec.Result = drawResult
			return true, nil
		}
		return false, nil
	}
	san, nags := splitGlyphs(v)
	switch strings.TrimRight(san, "+#") {
	case "0-0", "0-0-0", "--":
		p.push(san, nags)
		return false, nil
	}
	return false, p.errorAt(t.start, "unrecognised move "+strconv.Quote(v))
}

// variationToken tracks nesting inside a skipped variation.
func (p *parser) variationToken(t token) error {
	switch t.Type {
	case nchess.VariationStart:
		p.depth++
	case nchess.VariationEnd:
		p.depth--
	case nchess.CommentStart:
		_, err := p.comment(t)
		return err
	}
	return nil
}

func (p *parser) begin(t token, pawn bool) error {
	if err := p.flush(); err != nil {
		return err
	}
	p.inMoves = true
	p.cur = &pendingMove{start: t.start, pawn: pawn}
	p.cur.write(t)
	return nil
}

func (p *parser) flush() error {
	m := p.cur
	if m == nil {
		return nil
	}
	p.cur = nil
	if !m.target || m.awaiting {
		return p.errorAt(m.start, "incomplete move "+strconv.Quote(m.san.String()))
	}
	p.push(m.san.String(), nil)
	return nil
}

func (p *parser) push(san string, nags []int) {
	ply := len(p.rec.Moves)
	p.rec.Moves = append(p.rec.Moves, MoveToken{
		Ply:    ply,
		Number: ply/2 + 1,
		SAN:    san,
		NAGs:   nags,
	})
}

func (p *parser) last() *MoveToken {
	if len(p.rec.Moves) == 0 {
		return nil
	}
	return &p.rec.Moves[len(p.rec.Moves)-1]
}

func (p *parser) tag(open token) (Tag, error) {
	key := p.next()
	if key.Error != nil {
		return Tag{}, p.tokenError(key)
	}
	if key.Type != nchess.TagKey || key.Value == "" {
		return Tag{}, p.errorAt(open.start, "tag without name")
	}
	val := p.next()
	if val.Type != nchess.TagValue {
		return Tag{}, p.errorAt(val.start, "tag "+key.Value+" has no quoted value")
	}
	end := p.next()
	if end.Type != nchess.TagEnd {
		return Tag{}, p.errorAt(end.start, "tag "+key.Value+" is not closed")
	}
	return Tag{Name: key.Value, Value: val.Value}, nil
}

// comment consumes tokens up to the closing brace. Embedded commands such
// as [%clk ...] are dropped.
func (p *parser) comment(open token) (string, error) {
	var parts []string
	for {
		t := p.next()
		if t.Error != nil || t.Type == nchess.EOF {
			return "", p.errorAt(open.start, "unterminated comment")
		}
		switch t.Type {
		case nchess.CommentEnd:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
		case nchess.COMMENT:
			parts = append(parts, t.Value)
		}
	}
}

func (p *parser) tokenError(t token) error {
	if t.Type == nchess.EOF {
		return p.errorAt(t.start, "unexpected end of input")
	}
	return p.errorAt(t.start, "unrecognised move "+strconv.Quote(p.wordAt(t.start)))
}

func (p *parser) wordAt(off int) string {
	end := off
	for end < len(p.src) && !isSpace(p.src[end]) {
		end++
	}
	return p.src[off:end]
}

func (p *parser) errorAt(off int, msg string) error {
	if off > len(p.src) {
		off = len(p.src)
	}
	head := p.src[:off]
	line := strings.Count(head, "\n") + 1
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return &SyntaxError{Line: line, Column: utf8.RuneCountInString(head[lineStart:]) + 1, Msg: msg}
}

func nagValue(v string) (int, bool) {
	if n, ok := glyphNAGs[v]; ok {
		return n, true
	}
	if !strings.HasPrefix(v, "$") {
		return 0, false
	}
	n, err := strconv.Atoi(v[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func splitGlyphs(word string) (string, []int) {
	cut := strings.IndexAny(word, "!?")
	if cut < 0 {
		return word, nil
	}
	if n, ok := glyphNAGs[word[cut:]]; ok {
		return word[:cut], []int{n}
	}
	return word, nil
}

// blankEscapes replaces what the lexer does not understand with spaces so
// byte offsets still line up: semicolon comments, %-escaped lines and the
// "e.p." marker after en passant captures.
func blankEscapes(text string) string {
	b := []byte(text)
	inBrace, inQuote := false, false
	lineStart := true
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case inBrace:
			if c == '}' {
				inBrace = false
			}
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case c == '{':
			inBrace = true
		case c == '"':
			inQuote = true
		case c == ';' || (c == '%' && lineStart):
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
			i--
		case c == 'e' && strings.HasPrefix(string(b[i:min(i+4, len(b))]), "e.p."):
			copy(b[i:i+4], "    ")
			i += 3
		}
		lineStart = i >= 0 && i < len(b) && b[i] == '\n'
	}
	return string(b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
