// Package ucimove parses and formats moves in long algebraic notation
// ("e2e4", "e7e8q") and maps them onto the move records of a rules engine.
package ucimove

import "fmt"

const (
	minMoveLength = 4
	maxMoveLength = 5
)

// UCIMove is a move as written on the wire. It does not know which position
// it applies to.
type UCIMove struct {
	From      Square
	To        Square
	Promotion PieceType // NoPieceType when the move does not promote
}

func (m UCIMove) String() string {
	s := m.From.String() + m.To.String()
	if c := m.Promotion.Char(); c != 0 {
		s += string(c)
	}
	return s
}

type ParserErrorType int

const (
	InvalidFile ParserErrorType = iota
	InvalidRank
	InvalidPromotionPiece
	UnexpectedToken
	MissingData
)

func (t ParserErrorType) String() string {
	switch t {
	case InvalidFile:
		return "invalid file"
	case InvalidRank:
		return "invalid rank"
	case InvalidPromotionPiece:
		return "invalid promotion piece"
	case UnexpectedToken:
		return "unexpected trailing data"
	case MissingData:
		return "input too short"
	default:
		return fmt.Sprintf("ParserErrorType(%d)", int(t))
	}
}

// ParserError is returned by Parse. Text holds the offending input.
type ParserError struct {
	Type ParserErrorType
	Text string
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("uci move '%s': %s", e.Text, e.Type)
}

func isFile(c byte) bool {
	return c >= 'a' && c <= 'h'
}

func isRank(c byte) bool {
	return c >= '1' && c <= '8'
}

func promotionType(c byte) PieceType {
	switch c {
	case 'q':
		return Queen
	case 'r':
		return Rook
	case 'b':
		return Bishop
	case 'n':
		return Knight
	default:
		return NoPieceType
	}
}

// Parse reads a move in long algebraic notation. Failures are *ParserError.
func Parse(s string) (UCIMove, error) {
	fail := func(t ParserErrorType) (UCIMove, error) {
		return UCIMove{}, &ParserError{Type: t, Text: s}
	}

	if len(s) < minMoveLength {
		return fail(MissingData)
	}
	if len(s) > maxMoveLength {
		return fail(UnexpectedToken)
	}
	if !isFile(s[0]) || !isFile(s[2]) {
		return fail(InvalidFile)
	}
	if !isRank(s[1]) || !isRank(s[3]) {
		return fail(InvalidRank)
	}

	m := UCIMove{
		From: NewSquare(int(s[0]-'a'), int(s[1]-'1')),
		To:   NewSquare(int(s[2]-'a'), int(s[3]-'1')),
	}

	if len(s) == maxMoveLength {
		m.Promotion = promotionType(s[4])
		if m.Promotion == NoPieceType {
			return fail(InvalidPromotionPiece)
		}
	}

	return m, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) UCIMove {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}
