package uci

import (
	"reflect"
	"testing"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		line string
		want ID
	}{
		{line: "id name Stockfish 16", want: ID{Name: "Stockfish 16"}},
		{line: "id author the Stockfish developers (see AUTHORS file)", want: ID{Author: "the Stockfish developers (see AUTHORS file)"}},
		{line: "id name  Shredder   X", want: ID{Name: "Shredder X"}},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			got, err := ParseID(Tokenize(c.line))
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Errorf("want: %+v got: %+v", c.want, got)
			}
		})
	}

	for _, line := range []string{"id", "id name", "id version 3"} {
		t.Run(line, func(t *testing.T) {
			if _, err := ParseID(Tokenize(line)); err == nil {
				t.Error("want error")
			}
		})
	}
}

func TestParseBestMove(t *testing.T) {
	cases := []struct {
		line string
		want BestMove
	}{
		{line: "bestmove e2e4", want: BestMove{Move: moves("e2e4")[0]}},
		{line: "bestmove e2e4 ponder e7e5", want: BestMove{Move: moves("e2e4")[0], Ponder: &moves("e7e5")[0]}},
		{line: "bestmove a7a8n", want: BestMove{Move: moves("a7a8n")[0]}},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			// act
			got, err := ParseBestMove(Tokenize(c.line))

			// assert
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c.want, got) {
				t.Errorf("want: %s got: %s", c.want, got)
			}
		})
	}
}

func TestParseBestMoveErrors(t *testing.T) {
	for _, line := range []string{
		"bestmove",
		"bestmove (none)",
		"bestmove e2e4 ponder",
		"bestmove e2e4 ponder e7",
		"bestmove e2e4 maybe e7e5",
	} {
		t.Run(line, func(t *testing.T) {
			if _, err := ParseBestMove(Tokenize(line)); err == nil {
				t.Error("want error")
			}
		})
	}
}

func TestParseInfo(t *testing.T) {
	cases := []struct {
		name string
		line string
		want SearchInfo
	}{
		{
			name: "typical",
			line: "info depth 20 seldepth 28 multipv 1 score cp 35 nodes 1234567 nps 987654 hashfull 345 tbhits 0 time 1250 pv e2e4 e7e5 g1f3",
			want: SearchInfo{
				Depth:    Ptr(20),
				SelDepth: Ptr(28),
				MultiPV:  Ptr(1),
				Score:    &Score{CP: Ptr(35)},
				Nodes:    Ptr[uint64](1234567),
				NPS:      Ptr[uint64](987654),
				HashFull: Ptr(345),
				TBHits:   Ptr[uint64](0),
				Time:     Ptr(1250),
				PV:       moves("e2e4", "e7e5", "g1f3"),
			},
		},
		{
			name: "bound",
			line: "info score cp -500 lowerbound hashfull 80 multipv 1",
			want: SearchInfo{
				Score:    &Score{CP: Ptr(-500), LowerBound: true},
				HashFull: Ptr(80),
				MultiPV:  Ptr(1),
			},
		},
		{
			name: "upperbound",
			line: "info depth 3 score mate -2 upperbound",
			want: SearchInfo{
				Depth: Ptr(3),
				Score: &Score{Mate: Ptr(-2), UpperBound: true},
			},
		},
		{
			name: "string",
			line: "info depth 1 string  hello   world  score cp 3",
			want: SearchInfo{
				Depth: Ptr(1),
				Text:  "hello world score cp 3",
			},
		},
		{
			name: "currline",
			line: "info score mate 3 currline 0 e2e4 e7e5 depth 4",
			want: SearchInfo{
				Score:    &Score{Mate: Ptr(3)},
				CurrLine: &Line{CPUNr: Ptr(0), Moves: moves("e2e4", "e7e5")},
				Depth:    Ptr(4),
			},
		},
		{
			name: "currline without cpu",
			line: "info currline d2d4 d7d5",
			want: SearchInfo{
				CurrLine: &Line{Moves: moves("d2d4", "d7d5")},
			},
		},
		{
			name: "wdl",
			line: "info depth 12 score cp 18 wdl 120 820 60 pv d2d4",
			want: SearchInfo{
				Depth: Ptr(12),
				Score: &Score{CP: Ptr(18)},
				WDL:   &WDL{Win: 120, Draw: 820, Loss: 60},
				PV:    moves("d2d4"),
			},
		},
		{
			name: "currmove",
			line: "info currmove e7e8q currmovenumber 3 cpuload 700 sbhits 5",
			want: SearchInfo{
				CurrMove:       &moves("e7e8q")[0],
				CurrMoveNumber: Ptr(3),
				CPULoad:        Ptr(700),
				SBHits:         Ptr[uint64](5),
			},
		},
		{
			name: "refutation",
			line: "info refutation d1h5 g6h5",
			want: SearchInfo{
				Refutation: moves("d1h5", "g6h5"),
			},
		},
		{
			name: "unknown tokens skipped",
			line: "info depth 7 ebf 1.8 nodes 100",
			want: SearchInfo{
				Depth: Ptr(7),
				Nodes: Ptr[uint64](100),
			},
		},
		{
			name: "empty",
			line: "info",
			want: SearchInfo{},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			// act
			got, err := ParseInfo(Tokenize(c.line))

			// assert
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c.want, got) {
				t.Errorf("\nwant: %s\ngot:  %s", c.want, got)
			}
		})
	}
}

func TestParseInfoErrors(t *testing.T) {
	for _, line := range []string{
		"info depth",
		"info depth deep",
		"info nodes -5",
		"info score",
		"info score cp",
		"info score cp high",
		"info score wdl 10",
		"info wdl 1 2",
		"info wdl 1 two 3",
		"info currmove xyz",
		"info pv e2e4 e7e5 bogus",
	} {
		t.Run(line, func(t *testing.T) {
			if _, err := ParseInfo(Tokenize(line)); err == nil {
				t.Error("want error")
			}
		})
	}
}

func TestParseScoreIndex(t *testing.T) {
	cases := []struct {
		line string
		want int
	}{
		{line: "info score cp 10", want: 3},
		{line: "info score cp 10 lowerbound", want: 4},
		{line: "info score mate 2 nodes 5", want: 3},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			_, last, err := ParseScore(Tokenize(c.line), 1)
			if err != nil {
				t.Fatal(err)
			}
			if last != c.want {
				t.Errorf("want: %d got: %d", c.want, last)
			}
		})
	}
}

func TestParseOption(t *testing.T) {
	cases := []struct {
		line string
		want Option
	}{
		{
			line: "option name UCI_EngineAbout type string default Shredder by Stefan Meyer-Kahlen, see www.shredderchess.com",
			want: Option{Name: "UCI_EngineAbout", Type: OptionString, Default: Ptr("Shredder by Stefan Meyer-Kahlen, see www.shredderchess.com")},
		},
		{
			line: "option name Style type combo default Normal var Solid var Normal var Risky",
			want: Option{Name: "Style", Type: OptionCombo, Default: Ptr("Normal"), Vars: []string{"Solid", "Normal", "Risky"}},
		},
		{
			line: "option name Max Depth type spin default 10 min 1 max 64",
			want: Option{Name: "Max Depth", Type: OptionSpin, Default: Ptr("10"), Min: Ptr(1), Max: Ptr(64)},
		},
		{
			line: "option name cheat type check default false",
			want: Option{Name: "cheat", Type: OptionCheck, Default: Ptr("false")},
		},
		{
			line: "option name Clear Hash type button",
			want: Option{Name: "Clear Hash", Type: OptionButton},
		},
		{
			line: "option name Contempt type spin default -10 min -100 max 100",
			want: Option{Name: "Contempt", Type: OptionSpin, Default: Ptr("-10"), Min: Ptr(-100), Max: Ptr(100)},
		},
	}

	for _, c := range cases {
		t.Run(c.want.Name, func(t *testing.T) {
			// act
			got, err := ParseOption(Tokenize(c.line))

			// assert
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c.want, got) {
				t.Errorf("\nwant: %s\ngot:  %s", c.want, got)
			}
		})
	}
}

func TestParseOptionErrors(t *testing.T) {
	for _, line := range []string{
		"option",
		"option type spin",
		"option name Hash",
		"option name Hash type slider",
		"option name Hash type spin min low",
		"option name Hash type spin max 1e9",
	} {
		t.Run(line, func(t *testing.T) {
			if _, err := ParseOption(Tokenize(line)); err == nil {
				t.Error("want error")
			}
		})
	}
}
