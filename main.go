package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chessuci/analyze"
	"chessuci/commas"
	"chessuci/config"
	"chessuci/engine"
	"chessuci/rules"
	"chessuci/uci"
	"chessuci/ucimove"
)

func main() {
	var (
		serve      = flag.Bool("serve", false, "run the built-in engine on stdin/stdout")
		configFile = flag.String("config", "chessuci.yaml", "config file")
		engineName = flag.String("engine", "", "engine to use, defaults to the first one configured")
		fen        = flag.String("fen", "startpos", "position to analyse")
		moveList   = flag.String("moves", "", "space separated UCI moves played from -fen; analyses every move")
		depth      = flag.Int("depth", 0, "search depth, overrides the config")
		maxTime    = flag.Duration("time", 0, "time limit per search, overrides the config")
		reportFile = flag.String("report", "", "write the game analysis as YAML to this file")
		pgnFile    = flag.String("pgn", "", "write the game analysis as annotated PGN to this file")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	// stdout belongs to the protocol in -serve mode
	logrus.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := engine.New(os.Stdin, os.Stdout).Run(ctx); err != nil {
			logrus.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatal(err)
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)

	eng, err := cfg.Engine(*engineName)
	if err != nil {
		logrus.Fatal(err)
	}

	opts := analyze.OptionsFrom(cfg.Analysis)
	if *depth > 0 {
		opts.Depth = *depth
	}
	if *maxTime > 0 {
		opts.MaxTime = *maxTime
	}

	moves, err := parseMoves(*moveList)
	if err != nil {
		logrus.Fatal(err)
	}

	a := analyze.New(eng)
	err = run(ctx, a, *fen, moves, opts, *reportFile, *pgnFile)
	a.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, a *analyze.Analyzer, fen string, moves []ucimove.UCIMove, opts analyze.Options, reportFile, pgnFile string) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	if len(moves) == 0 {
		return analysePosition(ctx, a, fen, opts)
	}

	start := time.Now()
	report, err := a.AnalyzeGame(ctx, fen, moves, opts)
	if err != nil {
		return err
	}
	logrus.Infof("analysed %d moves in %v", len(report.Moves), time.Since(start).Round(time.Millisecond))

	for _, move := range report.Moves {
		line := fmt.Sprintf("%3d. %-8s %s", move.Ply+1, move.SAN+move.Annotation, move.Eval.String(colorAt(move.Ply, fen)))
		if move.Comment != "" {
			line += "  " + move.Comment
		}
		fmt.Println(line)
	}

	if reportFile != "" {
		if err := writeFile(reportFile, report.WriteYAML); err != nil {
			return err
		}
	}

	if pgnFile != "" {
		pgn, err := report.PGN()
		if err != nil {
			return err
		}
		if err := os.WriteFile(pgnFile, []byte(pgn), 0o644); err != nil {
			return fmt.Errorf("'%s': %w", pgnFile, err)
		}
	}

	return nil
}

func analysePosition(ctx context.Context, a *analyze.Analyzer, fen string, opts analyze.Options) error {
	pos, err := rules.FromFEN(fen)
	if err != nil {
		return err
	}

	res, err := a.Search(ctx, uci.Position{FEN: pos.FEN()}, opts)
	if errors.Is(err, analyze.ErrNoMove) {
		fmt.Println("no legal moves")
		return nil
	} else if err != nil {
		return err
	}

	color := pos.SideToMove()
	for _, eval := range res.Evals {
		fmt.Printf("%d: depth %d eval %s nodes %s pv %s\n",
			eval.MultiPV, eval.Depth, eval.String(color), commas.Uint64(eval.Nodes), strings.Join(eval.PV, " "))
	}

	san, err := pos.SAN(res.BestMove.Move)
	if err != nil {
		san = res.BestMove.Move.String()
	}
	fmt.Printf("bestmove %s (%s)\n", san, res.BestMove.Move)
	if res.Stopped {
		fmt.Printf("stopped after %v\n", opts.MaxTime)
	}

	return nil
}

func parseMoves(s string) ([]ucimove.UCIMove, error) {
	var moves []ucimove.UCIMove
	for _, f := range strings.Fields(s) {
		m, err := ucimove.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("-moves: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// colorAt is the side to move at ply, counted from fen.
func colorAt(ply int, fen string) ucimove.Color {
	pos, err := rules.FromFEN(fen)
	if err != nil {
		return ucimove.White
	}
	c := pos.SideToMove()
	if ply%2 == 1 {
		if c == ucimove.White {
			return ucimove.Black
		}
		return ucimove.White
	}
	return c
}

func writeFile(filename string, write func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("'%s': %w", filename, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("'%s': %w", filename, err)
	}
	return f.Close()
}
