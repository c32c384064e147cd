package analyze

import (
	"fmt"
	"strings"

	"chessuci/rules"
	"chessuci/ucimove"
)

const maxLineWidth = 72

// PGN renders the report as an annotated game: "[%eval]" comments after
// every move and the engine's line after inaccuracies, mistakes and
// blunders.
func (r *Report) PGN() (string, error) {
	var sb strings.Builder

	if r.FEN != "" && r.FEN != rules.StartFEN {
		sb.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", r.FEN))
		sb.WriteString("[SetUp \"1\"]\n")
	}
	if r.Engine != "" {
		sb.WriteString(fmt.Sprintf("[Annotator \"%s\"]\n", r.Engine))
	}
	if r.Depth != 0 {
		sb.WriteString(fmt.Sprintf("[Depth \"%d\"]\n", r.Depth))
	}
	sb.WriteString("\n")

	pos, err := rules.FromFEN(r.FEN)
	if err != nil {
		return "", err
	}
	basePly := plyOffset(pos)

	result := "*"
	for _, move := range r.Moves {
		color := pos.SideToMove()
		moveNumber := (basePly+move.Ply)/2 + 1

		if color == ucimove.White {
			sb.WriteString(fmt.Sprintf("%d. ", moveNumber))
		} else {
			sb.WriteString(fmt.Sprintf("%d... ", moveNumber))
		}
		sb.WriteString(move.SAN + move.Annotation + "\n")

		if move.IsMate {
			winner := "White"
			result = "1-0"
			if color == ucimove.Black {
				winner = "Black"
				result = "0-1"
			}
			sb.WriteString(fmt.Sprintf("    { Checkmate. %s is victorious. }\n", winner))
		} else if move.Comment != "" {
			sb.WriteString(fmt.Sprintf("    { [%%eval %s] %s }\n", move.Eval.String(color), move.Comment))
		} else if !move.Eval.Empty() {
			sb.WriteString(fmt.Sprintf("    { [%%eval %s] }\n", move.Eval.String(color)))
		}

		if move.Annotation != "" {
			if err := writeVariation(&sb, pos, basePly+move.Ply, move.BestMove); err != nil {
				return "", err
			}
		}

		m, err := ucimove.Parse(move.UCI)
		if err != nil {
			return "", err
		}
		if pos, err = pos.Apply(m); err != nil {
			return "", err
		}
	}
	sb.WriteString(result + "\n")

	return sb.String(), nil
}

// plyOffset is the number of plies played before pos, per its FEN move
// counters.
func plyOffset(pos *rules.Position) int {
	fields := strings.Fields(pos.FEN())
	fullMove := 1
	if len(fields) == 6 {
		fmt.Sscanf(fields[5], "%d", &fullMove)
	}
	ply := (fullMove - 1) * 2
	if pos.SideToMove() == ucimove.Black {
		ply++
	}
	return ply
}

func writeVariation(sb *strings.Builder, pos *rules.Position, ply int, eval Eval) error {
	sb.WriteString("    ( ")
	used := 6

	cur := pos
	for j, s := range eval.PV {
		m, err := ucimove.Parse(s)
		if err != nil {
			return err
		}
		san, err := cur.SAN(m)
		if err != nil {
			// stop at the first move that is not legal here
			break
		}

		color := cur.SideToMove()
		moveNumber := (ply+j)/2 + 1

		var token string
		if j == 0 && color == ucimove.Black {
			token = fmt.Sprintf("%d... %s ", moveNumber, san)
		} else if color == ucimove.White {
			token = fmt.Sprintf("%d. %s ", moveNumber, san)
		} else {
			token = san + " "
		}
		if j == 0 {
			token += fmt.Sprintf("{ [%%eval %s] } ", eval.String(color))
		}

		if used+len(token) > maxLineWidth {
			sb.WriteString("\n    ")
			used = 4
		}
		sb.WriteString(token)
		used += len(token)

		if cur, err = cur.Apply(m); err != nil {
			return err
		}
	}
	sb.WriteString(")\n")
	return nil
}
