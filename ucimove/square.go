package ucimove

import "fmt"

// Square is a board square, a1 = 0 through h8 = 63.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// File is 0 for the a-file through 7 for the h-file.
func (sq Square) File() int {
	return int(sq) % 8
}

// Rank is 0 for the first rank through 7 for the eighth.
func (sq Square) Rank() int {
	return int(sq) / 8
}

func (sq Square) Valid() bool {
	return sq >= 0 && sq < 64
}

func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

type PieceType int8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceTypeChars = []byte{0, 'k', 'q', 'r', 'b', 'n', 'p'}

// Char returns the lower case letter of the piece type, 0 for NoPieceType.
func (pt PieceType) Char() byte {
	if pt < 0 || int(pt) >= len(pieceTypeChars) {
		return 0
	}
	return pieceTypeChars[pt]
}

func (pt PieceType) String() string {
	switch pt {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return "none"
	}
}

type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// Piece is a colored piece. The zero value means "no piece".
type Piece struct {
	Type  PieceType
	Color Color
}

var NoPiece = Piece{}

func (p Piece) Empty() bool {
	return p.Type == NoPieceType
}

// Char returns the FEN letter of the piece, upper case for white.
func (p Piece) Char() byte {
	c := p.Type.Char()
	if p.Color == White && c != 0 {
		c -= 'a' - 'A'
	}
	return c
}
