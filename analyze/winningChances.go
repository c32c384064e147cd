package analyze

import "math"

func rawWinningChances(cp float64) float64 {
	return 2/(1+math.Exp(-0.004*cp)) - 1
}

func cpWinningChances(cp int) float64 {
	return rawWinningChances(math.Min(math.Max(-1000, float64(cp)), 1000))
}

func mateWinningChances(mate int) float64 {
	cp := (21 - math.Min(10, math.Abs(float64(mate)))) * 100
	signed := cp
	if mate < 0 {
		signed *= -1
	}
	return rawWinningChances(signed)
}

// WinningChances maps an evaluation onto [-1, 1] for the side to move.
// 1  infinitely winning
// -1 infinitely losing
func WinningChances(eval Eval) float64 {
	if eval.Mated {
		return -1
	}
	if eval.Mate != 0 {
		return mateWinningChances(eval.Mate)
	}
	return cpWinningChances(eval.CP)
}

// diffWC is how much the played move gave away compared to the best one,
// both seen by the side that moved.
// 0  = played is as good as best
// -1 = played threw away a won position
func diffWC(played, best Eval) float64 {
	return WinningChances(played) - WinningChances(best)
}

// $2 = ?  (poor move, mistake)
// $4 = ?? (very poor move or blunder)
// $6 = ?! (questionable or dubious move, inaccuracy)
func annotate(diff float64) (annotation, word string) {
	switch {
	case diff <= -0.3:
		return "??", "Blunder"
	case diff <= -0.2:
		return "?", "Mistake"
	case diff <= -0.1:
		return "?!", "Inaccuracy"
	}
	return "", ""
}
