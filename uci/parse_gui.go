package uci

import (
	"strconv"

	"chessuci/ucimove"
)

// ParseID parses "id name <words>" or "id author <words>". Only the field
// named by the line is set.
func ParseID(tokens []string) (ID, error) {
	if len(tokens) < 3 {
		return ID{}, parseError("id", "expected name or author")
	}
	text := joinTokens(tokens, 2, len(tokens))
	switch tokens[1] {
	case "name":
		return ID{Name: text}, nil
	case "author":
		return ID{Author: text}, nil
	default:
		return ID{}, parseError("id", "expected name or author, got '%s'", tokens[1])
	}
}

// ParseBestMove parses "bestmove <move> [ponder <move>]".
func ParseBestMove(tokens []string) (BestMove, error) {
	if len(tokens) < 2 {
		return BestMove{}, parseError("bestmove", "missing move")
	}

	m, err := ucimove.Parse(tokens[1])
	if err != nil {
		return BestMove{}, &Error{Command: "bestmove", Msg: "invalid best move", Err: err}
	}
	info := BestMove{Move: m}

	if len(tokens) > 2 {
		if tokens[2] != "ponder" {
			return BestMove{}, parseError("bestmove", "expected ponder, got '%s'", tokens[2])
		}
		if len(tokens) < 4 {
			return BestMove{}, parseError("bestmove", "missing ponder move")
		}
		p, err := ucimove.Parse(tokens[3])
		if err != nil {
			return BestMove{}, &Error{Command: "bestmove", Msg: "invalid ponder move", Err: err}
		}
		info.Ponder = &p
	}

	return info, nil
}

// ParseScore parses the score starting at tokens[i] == "score". It returns
// the index of the last token it consumed. The bound, if any, sits right
// after the value.
func ParseScore(tokens []string, i int) (Score, int, error) {
	var score Score
	if i+2 >= len(tokens) {
		return Score{}, i, parseError("info", "incomplete score")
	}

	v, err := strconv.Atoi(tokens[i+2])
	if err != nil {
		return Score{}, i, &Error{Command: "info", Msg: "invalid score value", Err: err}
	}

	switch tokens[i+1] {
	case "cp":
		score.CP = &v
	case "mate":
		score.Mate = &v
	default:
		return Score{}, i, parseError("info", "expected cp or mate, got '%s'", tokens[i+1])
	}

	last := i + 2
	if i+3 < len(tokens) {
		switch tokens[i+3] {
		case "lowerbound":
			score.LowerBound = true
			last++
		case "upperbound":
			score.UpperBound = true
			last++
		}
	}

	return score, last, nil
}

// ParseInfo parses an "info" line. pv, refutation and currline start
// collecting moves; any other keyword stops the collection. Unknown tokens
// outside a move list are skipped.
func ParseInfo(tokens []string) (SearchInfo, error) {
	var info SearchInfo
	var target *[]ucimove.UCIMove

	fail := func(msg string, err error) (SearchInfo, error) {
		return SearchInfo{}, &Error{Command: "info", Msg: msg, Err: err}
	}

	for i := 1; i < len(tokens); i++ {
		arg := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", parseError("info", "missing value for %s", tokens[i])
			}
			i++
			return tokens[i], nil
		}
		intArg := func() (*int, error) {
			key := tokens[i]
			s, err := arg()
			if err != nil {
				return nil, err
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, &Error{Command: "info", Msg: "invalid integer for " + key, Err: err}
			}
			return &v, nil
		}
		uintArg := func() (*uint64, error) {
			key := tokens[i]
			s, err := arg()
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, &Error{Command: "info", Msg: "invalid integer for " + key, Err: err}
			}
			return &v, nil
		}

		var err error
		tok := tokens[i]
		switch tok {
		case "depth":
			info.Depth, err = intArg()
		case "seldepth":
			info.SelDepth, err = intArg()
		case "time":
			info.Time, err = intArg()
		case "nodes":
			info.Nodes, err = uintArg()
		case "multipv":
			info.MultiPV, err = intArg()
		case "currmovenumber":
			info.CurrMoveNumber, err = intArg()
		case "hashfull":
			info.HashFull, err = intArg()
		case "nps":
			info.NPS, err = uintArg()
		case "tbhits":
			info.TBHits, err = uintArg()
		case "sbhits":
			info.SBHits, err = uintArg()
		case "cpuload":
			info.CPULoad, err = intArg()
		case "score":
			var score Score
			score, i, err = ParseScore(tokens, i)
			info.Score = &score
		case "wdl":
			if i+3 >= len(tokens) {
				return fail("incomplete wdl", nil)
			}
			var wdl [3]int
			for k := range wdl {
				if wdl[k], err = strconv.Atoi(tokens[i+1+k]); err != nil {
					return fail("invalid wdl value", err)
				}
			}
			info.WDL = &WDL{Win: wdl[0], Draw: wdl[1], Loss: wdl[2]}
			i += 3
		case "currmove":
			var s string
			if s, err = arg(); err == nil {
				m, perr := ucimove.Parse(s)
				if perr != nil {
					return fail("invalid currmove", perr)
				}
				info.CurrMove = &m
			}
		case "currline":
			info.CurrLine = &Line{}
			if i+1 < len(tokens) {
				if n, aerr := strconv.Atoi(tokens[i+1]); aerr == nil {
					info.CurrLine.CPUNr = &n
					i++
				}
			}
			target = &info.CurrLine.Moves
			continue
		case "pv":
			target = &info.PV
			continue
		case "refutation":
			target = &info.Refutation
			continue
		case "string":
			info.Text = joinTokens(tokens, i+1, len(tokens))
			return info, nil
		default:
			if target == nil {
				continue
			}
			m, perr := ucimove.Parse(tok)
			if perr != nil {
				return fail("move expected, found '"+tok+"'", perr)
			}
			*target = append(*target, m)
			continue
		}

		if err != nil {
			return SearchInfo{}, err
		}
		target = nil
	}

	return info, nil
}

type optionField int

const (
	fieldNone optionField = iota
	fieldName
	fieldType
	fieldDefault
	fieldMin
	fieldMax
	fieldVar
)

var optionKeywords = map[string]optionField{
	"name":    fieldName,
	"type":    fieldType,
	"default": fieldDefault,
	"min":     fieldMin,
	"max":     fieldMax,
	"var":     fieldVar,
}

// ParseOption parses an "option" line. Every keyword collects the words up
// to the next keyword; var may repeat.
func ParseOption(tokens []string) (Option, error) {
	var opt Option
	var hasType bool

	field := fieldNone
	start := 1

	flush := func(end int) error {
		if field == fieldNone || start >= end {
			return nil
		}
		value := joinTokens(tokens, start, end)
		switch field {
		case fieldName:
			opt.Name = value
		case fieldType:
			t, err := ParseOptionType(value)
			if err != nil {
				return err
			}
			opt.Type = t
			hasType = true
		case fieldDefault:
			opt.Default = &value
		case fieldMin, fieldMax:
			n, err := strconv.Atoi(value)
			if err != nil {
				return &Error{Command: "option", Msg: "invalid integer '" + value + "'", Err: err}
			}
			if field == fieldMin {
				opt.Min = &n
			} else {
				opt.Max = &n
			}
		case fieldVar:
			opt.Vars = append(opt.Vars, value)
		}
		return nil
	}

	for i := 1; i < len(tokens); i++ {
		f, ok := optionKeywords[tokens[i]]
		if !ok {
			continue
		}
		if err := flush(i); err != nil {
			return Option{}, err
		}
		field = f
		start = i + 1
	}
	if err := flush(len(tokens)); err != nil {
		return Option{}, err
	}

	if opt.Name == "" {
		return Option{}, parseError("option", "missing name")
	}
	if !hasType {
		return Option{}, parseError("option", "missing type")
	}

	return opt, nil
}
