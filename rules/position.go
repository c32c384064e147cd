// Package rules adapts github.com/notnil/chess to the ucimove.Position
// interface so wire moves can be checked against real legal move lists.
package rules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"chessuci/ucimove"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable chess position.
type Position struct {
	pos *chess.Position
}

// FromFEN builds a position from a FEN string. "startpos" is accepted as
// shorthand for the initial position.
func FromFEN(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		fen = StartFEN
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("fen '%s': %w", fen, err)
	}

	return &Position{pos: chess.NewGame(opt).Position()}, nil
}

// Start returns the initial position.
func Start() *Position {
	return &Position{pos: chess.NewGame().Position()}
}

func (p *Position) FEN() string {
	return p.pos.String()
}

func (p *Position) String() string {
	return p.FEN()
}

func (p *Position) SideToMove() ucimove.Color {
	return toColor(p.pos.Turn())
}

func (p *Position) CastlingRights() string {
	return p.pos.CastleRights().String()
}

func (p *Position) EnPassantTarget() ucimove.Square {
	sq := p.pos.EnPassantSquare()
	if sq == chess.NoSquare {
		return ucimove.NoSquare
	}
	return ucimove.Square(sq)
}

func (p *Position) HalfmoveClock() int {
	return p.pos.HalfMoveClock()
}

func (p *Position) PieceAt(sq ucimove.Square) (ucimove.Piece, bool) {
	if !sq.Valid() {
		return ucimove.NoPiece, false
	}
	pc := p.pos.Board().Piece(chess.Square(sq))
	if pc == chess.NoPiece {
		return ucimove.NoPiece, false
	}
	return toPiece(pc), true
}

// LegalMoves lists every legal move in the position.
func (p *Position) LegalMoves() []ucimove.Move {
	board := p.pos.Board()
	side := p.pos.Turn()

	valid := p.pos.ValidMoves()
	moves := make([]ucimove.Move, 0, len(valid))
	for _, m := range valid {
		mv := ucimove.Move{
			From:                ucimove.Square(m.S1()),
			To:                  ucimove.Square(m.S2()),
			Piece:               toPiece(board.Piece(m.S1())),
			CastlingBefore:      p.CastlingRights(),
			EnPassantBefore:     p.EnPassantTarget(),
			HalfmoveClockBefore: p.pos.HalfMoveClock(),
		}

		if m.HasTag(chess.EnPassant) {
			mv.EnPassant = true
			victim := ucimove.NewSquare(mv.To.File(), mv.From.Rank())
			mv.Captured = toPiece(board.Piece(chess.Square(victim)))
		} else if pc := board.Piece(m.S2()); pc != chess.NoPiece {
			mv.Captured = toPiece(pc)
		}

		if promo := m.Promo(); promo != chess.NoPieceType {
			mv.Promoted = ucimove.Piece{Type: ucimove.PieceType(promo), Color: toColor(side)}
		}

		moves = append(moves, mv)
	}
	return moves
}

func (p *Position) find(m ucimove.UCIMove) *chess.Move {
	for _, vm := range p.pos.ValidMoves() {
		if ucimove.Square(vm.S1()) != m.From || ucimove.Square(vm.S2()) != m.To {
			continue
		}
		if ucimove.PieceType(vm.Promo()) != m.Promotion {
			continue
		}
		return vm
	}
	return nil
}

// Apply plays m and returns the resulting position. The receiver is left
// untouched.
func (p *Position) Apply(m ucimove.UCIMove) (*Position, error) {
	vm := p.find(m)
	if vm == nil {
		return nil, fmt.Errorf("illegal move %s in position %s", m, p.FEN())
	}
	return &Position{pos: p.pos.Update(vm)}, nil
}

// SAN writes m in standard algebraic notation, e.g. "Nf3" or "exd8=Q+".
func (p *Position) SAN(m ucimove.UCIMove) (string, error) {
	vm := p.find(m)
	if vm == nil {
		return "", fmt.Errorf("illegal move %s in position %s", m, p.FEN())
	}
	return chess.AlgebraicNotation{}.Encode(p.pos, vm), nil
}

// ApplyAll plays a sequence of moves, stopping at the first illegal one.
func (p *Position) ApplyAll(moves []ucimove.UCIMove) (*Position, error) {
	cur := p
	for _, m := range moves {
		next, err := cur.Apply(m)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Outcome reports whether the side to move is checkmated or stalemated.
func (p *Position) Outcome() (checkmate, stalemate bool) {
	switch p.pos.Status() {
	case chess.Checkmate:
		return true, false
	case chess.Stalemate:
		return false, true
	}
	return false, false
}

func toColor(c chess.Color) ucimove.Color {
	switch c {
	case chess.White:
		return ucimove.White
	case chess.Black:
		return ucimove.Black
	default:
		return ucimove.NoColor
	}
}

// notnil/chess orders piece types the same way ucimove does.
func toPiece(pc chess.Piece) ucimove.Piece {
	if pc == chess.NoPiece {
		return ucimove.NoPiece
	}
	return ucimove.Piece{Type: ucimove.PieceType(pc.Type()), Color: toColor(pc.Color())}
}

var _ ucimove.Position = (*Position)(nil)
