package ucimove

import (
	"reflect"
	"testing"
)

type fakePosition struct {
	board     map[Square]Piece
	legal     []Move
	side      Color
	castling  string
	enPassant Square
	halfmove  int
}

func (p *fakePosition) LegalMoves() []Move { return p.legal }

func (p *fakePosition) PieceAt(sq Square) (Piece, bool) {
	pc, ok := p.board[sq]
	return pc, ok
}

func (p *fakePosition) SideToMove() Color       { return p.side }
func (p *fakePosition) CastlingRights() string  { return p.castling }
func (p *fakePosition) EnPassantTarget() Square { return p.enPassant }
func (p *fakePosition) HalfmoveClock() int      { return p.halfmove }

func sq(s string) Square {
	return NewSquare(int(s[0]-'a'), int(s[1]-'1'))
}

var (
	blackPawn   = Piece{Type: Pawn, Color: Black}
	blackQueen  = Piece{Type: Queen, Color: Black}
	blackBishop = Piece{Type: Bishop, Color: Black}
	whitePawn   = Piece{Type: Pawn, Color: White}
	whiteRook   = Piece{Type: Rook, Color: White}
)

func TestMatches(t *testing.T) {
	cases := []struct {
		name      string
		candidate Move
		move      string
		want      bool
	}{
		{name: "simple", candidate: Move{From: sq("e2"), To: sq("e4"), Piece: whitePawn}, move: "e2e4", want: true},
		{name: "different squares", candidate: Move{From: sq("a4"), To: sq("b4"), Piece: whitePawn}, move: "a3e7", want: false},
		{name: "promotion", candidate: Move{From: sq("c2"), To: sq("c1"), Piece: blackPawn, Promoted: blackQueen}, move: "c2c1q", want: true},
		{name: "missing promotion", candidate: Move{From: sq("d2"), To: sq("d1"), Piece: blackPawn, Promoted: blackQueen}, move: "d2d1", want: false},
		{name: "unexpected promotion", candidate: Move{From: sq("e7"), To: sq("e8"), Piece: whiteRook}, move: "e7e8q", want: false},
		{name: "other promotion", candidate: Move{From: sq("c2"), To: sq("c1"), Piece: blackPawn, Promoted: blackQueen}, move: "c2c1n", want: false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Matches(c.candidate, MustParse(c.move))
			if got != c.want {
				t.Errorf("want: %v got: %v", c.want, got)
			}
		})
	}
}

// loosely "r3k3/pp4p1/2nb1q1r/8/1Pp3B1/4N3/4P1p1/RN1QK2R b KQq b3 0 1"
func newTestPosition() *fakePosition {
	pos := &fakePosition{
		board: map[Square]Piece{
			sq("d6"): blackBishop,
			sq("c6"): {Type: Knight, Color: Black},
			sq("g2"): blackPawn,
			sq("c4"): blackPawn,
			sq("b4"): whitePawn,
		},
		side:      Black,
		castling:  "KQq",
		enPassant: sq("b3"),
	}

	before := func(m Move) Move {
		m.CastlingBefore = "KQq"
		m.EnPassantBefore = sq("b3")
		return m
	}
	pos.legal = []Move{
		before(Move{From: sq("d6"), To: sq("h2"), Piece: blackBishop}),
		before(Move{From: sq("c6"), To: sq("b4"), Piece: Piece{Type: Knight, Color: Black}, Captured: whitePawn}),
		before(Move{From: sq("g2"), To: sq("g1"), Piece: blackPawn, Promoted: blackQueen}),
		before(Move{From: sq("g2"), To: sq("g1"), Piece: blackPawn, Promoted: Piece{Type: Knight, Color: Black}}),
		before(Move{From: sq("c4"), To: sq("b3"), Piece: blackPawn, Captured: whitePawn, EnPassant: true}),
	}
	return pos
}

func TestConvertChecked(t *testing.T) {
	pos := newTestPosition()

	cases := []struct {
		move string
		ok   bool
	}{
		{move: "d6h2", ok: true},
		{move: "c6b4", ok: true},
		{move: "g2g1q", ok: true},
		{move: "g2g1n", ok: true},
		{move: "g2g1", ok: false}, // ambiguous without a promotion piece
		{move: "e6e4", ok: false},
	}

	for _, c := range cases {
		t.Run(c.move, func(t *testing.T) {
			m := MustParse(c.move)
			got, ok := ConvertChecked(m, pos)
			if ok != c.ok {
				t.Fatalf("want ok: %v got: %v", c.ok, ok)
			}
			if ok && !Matches(got, m) {
				t.Errorf("converted move %+v does not match %s", got, c.move)
			}
		})
	}
}

func TestConvertUnchecked(t *testing.T) {
	pos := newTestPosition()

	for _, move := range []string{"d6h2", "c6b4", "g2g1q", "c4b3"} {
		t.Run(move, func(t *testing.T) {
			m := MustParse(move)

			want, ok := ConvertChecked(m, pos)
			if !ok {
				t.Fatalf("reference conversion failed")
			}

			got, ok := ConvertUnchecked(m, pos)
			if !ok {
				t.Fatalf("unchecked conversion failed")
			}

			if !reflect.DeepEqual(want, got) {
				t.Errorf("want: %+v\ngot:  %+v", want, got)
			}
		})
	}
}

func TestConvertUncheckedEmptyOrigin(t *testing.T) {
	if _, ok := ConvertUnchecked(MustParse("a1a2"), newTestPosition()); ok {
		t.Error("want failure for an empty origin square")
	}
}
