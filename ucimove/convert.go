package ucimove

// Move is a move as the rules engine describes it, with enough of the
// position's state before the move to undo or record it.
type Move struct {
	From     Square
	To       Square
	Piece    Piece
	Captured Piece // NoPiece when nothing is captured
	Promoted Piece // NoPiece when the move does not promote

	EnPassant bool

	CastlingBefore      string // FEN castling field, "-" for none
	EnPassantBefore     Square // NoSquare when there is no target
	HalfmoveClockBefore int
}

// Position is the slice of a rules engine this package depends on.
type Position interface {
	LegalMoves() []Move
	PieceAt(sq Square) (Piece, bool)
	SideToMove() Color
	CastlingRights() string
	EnPassantTarget() Square
	HalfmoveClock() int
}

// Matches reports whether m describes candidate: same squares, and either
// neither promotes or both promote to the same piece type.
func Matches(candidate Move, m UCIMove) bool {
	if candidate.From != m.From || candidate.To != m.To {
		return false
	}
	if candidate.Promoted.Empty() {
		return m.Promotion == NoPieceType
	}
	return candidate.Promoted.Type == m.Promotion
}

// Match returns every candidate that m describes.
func Match(m UCIMove, candidates []Move) []Move {
	var result []Move
	for _, c := range candidates {
		if Matches(c, m) {
			result = append(result, c)
		}
	}
	return result
}

// ConvertChecked looks m up in the legal moves of pos. It only succeeds
// when exactly one legal move matches.
func ConvertChecked(m UCIMove, pos Position) (Move, bool) {
	matches := Match(m, pos.LegalMoves())
	if len(matches) != 1 {
		return Move{}, false
	}
	return matches[0], true
}

// ConvertUnchecked builds the move record from the board contents alone.
// It trusts the caller that m is legal in pos: there is no check, pin or
// path validation. A pawn changing file onto an empty square is taken to be
// an en passant capture.
func ConvertUnchecked(m UCIMove, pos Position) (Move, bool) {
	piece, ok := pos.PieceAt(m.From)
	if !ok {
		return Move{}, false
	}

	result := Move{
		From:                m.From,
		To:                  m.To,
		Piece:               piece,
		CastlingBefore:      pos.CastlingRights(),
		EnPassantBefore:     pos.EnPassantTarget(),
		HalfmoveClockBefore: pos.HalfmoveClock(),
	}

	if m.Promotion != NoPieceType {
		result.Promoted = Piece{Type: m.Promotion, Color: pos.SideToMove()}
	}

	captured, occupied := pos.PieceAt(m.To)
	if occupied {
		result.Captured = captured
	}

	if piece.Type == Pawn && m.From.File() != m.To.File() && !occupied {
		result.EnPassant = true
		if victim, ok := pos.PieceAt(NewSquare(m.To.File(), m.From.Rank())); ok {
			result.Captured = victim
		}
	}

	return result, true
}
