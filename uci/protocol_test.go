package uci

import (
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		cmd  interface{ String() string }
		want string
	}{
		{name: "setoption", cmd: SetOption{Name: "Hash", Value: Ptr("128")}, want: "setoption name Hash value 128"},
		{name: "setoption button", cmd: SetOption{Name: "Clear Hash"}, want: "setoption name Clear Hash"},
		{name: "position startpos", cmd: Position{FEN: StartPos}, want: "position startpos"},
		{name: "position empty fen", cmd: Position{Moves: moves("e2e4")}, want: "position startpos moves e2e4"},
		{
			name: "position fen",
			cmd:  Position{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", Moves: moves("a1a2", "h1h2")},
			want: "position fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1a2 h1h2",
		},
		{name: "go", cmd: Go{}, want: "go"},
		{
			name: "go clock",
			cmd:  Go{WTime: Ptr[int64](60000), BTime: Ptr[int64](59000), WInc: Ptr(1000), BInc: Ptr(1000), MovesToGo: Ptr(20)},
			want: "go wtime 60000 btime 59000 winc 1000 binc 1000 movestogo 20",
		},
		{
			name: "go searchmoves",
			cmd:  Go{SearchMoves: moves("e2e4", "d2d4"), Ponder: true, Depth: Ptr[uint64](12), Infinite: true},
			want: "go searchmoves e2e4 d2d4 ponder depth 12 infinite",
		},
		{name: "bestmove", cmd: BestMove{Move: moves("g1f3")[0]}, want: "bestmove g1f3"},
		{name: "bestmove ponder", cmd: BestMove{Move: moves("g1f3")[0], Ponder: &moves("g8f6")[0]}, want: "bestmove g1f3 ponder g8f6"},
		{
			name: "option spin",
			cmd:  Option{Name: "Hash", Type: OptionSpin, Default: Ptr("16"), Min: Ptr(1), Max: Ptr(1024)},
			want: "option name Hash type spin default 16 min 1 max 1024",
		},
		{
			name: "option combo",
			cmd:  Option{Name: "Style", Type: OptionCombo, Default: Ptr("Normal"), Vars: []string{"Solid", "Normal"}},
			want: "option name Style type combo default Normal var Solid var Normal",
		},
		{name: "option button", cmd: Option{Name: "Clear Hash", Type: OptionButton}, want: "option name Clear Hash type button"},
		{
			name: "info",
			cmd: SearchInfo{
				Depth:    Ptr(10),
				Nodes:    Ptr[uint64](4000),
				Score:    &Score{CP: Ptr(-15), UpperBound: true},
				CurrLine: &Line{CPUNr: Ptr(1), Moves: moves("e2e4")},
				PV:       moves("e2e4", "e7e5"),
				Text:     "done",
			},
			want: "info depth 10 nodes 4000 score cp -15 upperbound currline 1 e2e4 pv e2e4 e7e5 string done",
		},
		{name: "score mate", cmd: Score{Mate: Ptr(-3)}, want: "score mate -3"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.cmd.String(); got != c.want {
				t.Errorf("\nwant: '%s'\ngot:  '%s'", c.want, got)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	t.Run("position", func(t *testing.T) {
		want := Position{FEN: "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", Moves: moves("e1g1", "e8c8")}
		got, err := ParsePosition(Tokenize(want.String()))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("want: %s got: %s", want, got)
		}
	})

	t.Run("go", func(t *testing.T) {
		want := Go{
			SearchMoves: moves("e2e4"),
			WTime:       Ptr[int64](1000),
			BTime:       Ptr[int64](2000),
			Nodes:       Ptr[uint64](99),
			Mate:        Ptr(4),
			MoveTime:    Ptr[int64](300),
		}
		got, err := ParseGo(Tokenize(want.String()))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("want: %s got: %s", want, got)
		}
	})

	t.Run("option", func(t *testing.T) {
		want := Option{Name: "Skill Level", Type: OptionSpin, Default: Ptr("20"), Min: Ptr(0), Max: Ptr(20)}
		got, err := ParseOption(Tokenize(want.String()))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("want: %s got: %s", want, got)
		}
	})

	t.Run("info", func(t *testing.T) {
		want := SearchInfo{
			Depth:          Ptr(18),
			SelDepth:       Ptr(24),
			Time:           Ptr(812),
			Nodes:          Ptr[uint64](1500000),
			NPS:            Ptr[uint64](1847290),
			HashFull:       Ptr(120),
			TBHits:         Ptr[uint64](3),
			MultiPV:        Ptr(2),
			Score:          &Score{Mate: Ptr(5), LowerBound: true},
			WDL:            &WDL{Win: 990, Draw: 10, Loss: 0},
			CurrMove:       &moves("f7f8q")[0],
			CurrMoveNumber: Ptr(1),
			Refutation:     moves("d1h5", "g7g6"),
			PV:             moves("f7f8q", "e8f8"),
			Text:           "tablebase hit",
		}
		got, err := ParseInfo(Tokenize(want.String()))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("\nwant: %s\ngot:  %s", want, got)
		}
	})
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{line: "uci", want: []string{"uci"}},
		{line: "  go \t depth  5\r\n", want: []string{"go", "depth", "5"}},
		{line: " \t ", want: []string{}},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			got := Tokenize(c.line)
			if len(got) != len(c.want) {
				t.Fatalf("want: %q got: %q", c.want, got)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("want: %q got: %q", c.want, got)
				}
			}
		})
	}
}

func TestStripTrailingWhitespace(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{line: "readyok\r\n", want: "readyok"},
		{line: "  info string a  b \t", want: "  info string a  b"},
		{line: "", want: ""},
	}

	for _, c := range cases {
		if got := StripTrailingWhitespace(c.line); got != c.want {
			t.Errorf("%q, want: %q got: %q", c.line, c.want, got)
		}
	}
}

func TestOptionTypeRoundTrip(t *testing.T) {
	for _, ot := range []OptionType{OptionCheck, OptionSpin, OptionCombo, OptionButton, OptionString} {
		got, err := ParseOptionType(ot.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != ot {
			t.Errorf("want: %s got: %s", ot, got)
		}
	}
}
