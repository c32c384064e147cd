package analyze

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"chessuci/rules"
	"chessuci/uci"
	"chessuci/ucimove"
)

type Moves []Move

// Move is a played move next to the engine's preferred one. Both evals are
// from the point of view of the side that played it.
type Move struct {
	Ply        int    `yaml:"ply"`
	UCI        string `yaml:"uci"`
	SAN        string `yaml:"san"`
	Eval       Eval   `yaml:"eval"`
	BestMove   Eval   `yaml:"best_move"`
	Annotation string `yaml:"annotation,omitempty"`
	Comment    string `yaml:"comment,omitempty"`
	IsMate     bool   `yaml:"mate,omitempty"`
}

// Report is the YAML document written for an analysed game.
type Report struct {
	Engine string `yaml:"engine"`
	FEN    string `yaml:"fen"`
	Depth  int    `yaml:"depth"`
	Moves  Moves  `yaml:"moves"`
}

// AnalyzeGame evaluates every move of a game played from startFEN. Each
// position is searched twice: once freely for the best move, once limited
// to the move actually played.
func (a *Analyzer) AnalyzeGame(ctx context.Context, startFEN string, moves []ucimove.UCIMove, opts Options) (*Report, error) {
	pos, err := rules.FromFEN(startFEN)
	if err != nil {
		return nil, err
	}

	report := Report{
		Engine: a.ID().Name,
		FEN:    pos.FEN(),
		Depth:  opts.Depth,
	}

	if err := a.NewGame(ctx); err != nil {
		return nil, err
	}

	for i, m := range moves {
		san, err := pos.SAN(m)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", i, err)
		}
		next, err := pos.Apply(m)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", i, err)
		}

		before := uci.Position{FEN: report.FEN, Moves: moves[:i]}

		best, err := a.Search(ctx, before, opts)
		if err != nil {
			return nil, fmt.Errorf("ply %d best move: %w", i, err)
		}

		playedOpts := opts
		playedOpts.SearchMoves = []ucimove.UCIMove{m}
		played, err := a.Search(ctx, before, playedOpts)
		if err != nil {
			return nil, fmt.Errorf("ply %d played move: %w", i, err)
		}

		checkmate, _ := next.Outcome()
		move := Move{
			Ply:      i,
			UCI:      m.String(),
			SAN:      san,
			Eval:     played.Top(),
			BestMove: best.Top(),
			IsMate:   checkmate,
		}

		if !checkmate && !move.BestMove.Empty() && move.BestMove.UCIMove != move.UCI {
			var word string
			move.Annotation, word = annotate(diffWC(move.Eval, move.BestMove))
			if word != "" {
				bestSAN, err := pos.SAN(best.BestMove.Move)
				if err != nil {
					bestSAN = best.BestMove.Move.String()
				}
				move.Comment = fmt.Sprintf("%s. %s was best.", word, bestSAN)
			}
		}

		a.log.Infof("%d/%d %s%s %s", i+1, len(moves), san, move.Annotation, move.Eval.String(pos.SideToMove()))

		report.Moves = append(report.Moves, move)
		pos = next
	}

	return &report, nil
}

func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
