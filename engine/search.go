package engine

import (
	"chessuci/rules"
	"chessuci/ucimove"
)

const mateScore = 100_000

var pieceValues = map[ucimove.PieceType]int{
	ucimove.Pawn:   100,
	ucimove.Knight: 300,
	ucimove.Bishop: 300,
	ucimove.Rook:   500,
	ucimove.Queen:  900,
}

// material is the piece balance from the side to move's point of view.
func material(pos *rules.Position) int {
	side := pos.SideToMove()

	var total int
	for sq := ucimove.Square(0); sq < 64; sq++ {
		pc, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		if pc.Color == side {
			total += pieceValues[pc.Type]
		} else {
			total -= pieceValues[pc.Type]
		}
	}
	return total
}

type result struct {
	move  ucimove.UCIMove
	cp    int
	mate  bool
	nodes uint64
	found bool
}

func toUCI(m ucimove.Move) ucimove.UCIMove {
	return ucimove.UCIMove{From: m.From, To: m.To, Promotion: m.Promoted.Type}
}

// search looks one ply ahead and keeps the move leaving the best material
// balance. A mate wins outright; ties go to the first move generated.
// When only is non-empty the search is restricted to those moves.
func search(pos *rules.Position, only []ucimove.UCIMove) result {
	var best result

	for _, lm := range pos.LegalMoves() {
		m := toUCI(lm)
		if len(only) > 0 && !contains(only, m) {
			continue
		}

		next, err := pos.Apply(m)
		if err != nil {
			continue
		}
		best.nodes++

		var score int
		checkmate, stalemate := next.Outcome()
		switch {
		case checkmate:
			score = mateScore
		case stalemate:
			score = 0
		default:
			score = -material(next)
		}

		if !best.found || score > best.cp {
			best.move = m
			best.cp = score
			best.mate = checkmate
			best.found = true
		}
		if checkmate {
			break
		}
	}

	return best
}

func contains(moves []ucimove.UCIMove, m ucimove.UCIMove) bool {
	for _, c := range moves {
		if c == m {
			return true
		}
	}
	return false
}
