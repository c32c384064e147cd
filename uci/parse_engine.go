package uci

import (
	"strconv"

	"chessuci/ucimove"
)

var goKeywords = map[string]bool{
	"searchmoves": true,
	"ponder":      true,
	"wtime":       true,
	"btime":       true,
	"winc":        true,
	"binc":        true,
	"movestogo":   true,
	"depth":       true,
	"nodes":       true,
	"mate":        true,
	"movetime":    true,
	"infinite":    true,
}

// ParseDebug parses "debug on|off".
func ParseDebug(tokens []string) (Debug, error) {
	if len(tokens) != 2 {
		return Debug{}, parseError("debug", "expected on or off")
	}
	switch tokens[1] {
	case "on":
		return Debug{Enable: true}, nil
	case "off":
		return Debug{Enable: false}, nil
	default:
		return Debug{}, parseError("debug", "expected on or off, got '%s'", tokens[1])
	}
}

// ParseSetOption parses "setoption name <words> [value <words>]". A value
// keyword followed by nothing is an error, so a nil Value always means the
// value part was absent.
func ParseSetOption(tokens []string) (SetOption, error) {
	if len(tokens) < 2 || tokens[1] != "name" {
		return SetOption{}, parseError("setoption", "missing token name")
	}

	i := 2
	for i < len(tokens) && tokens[i] != "value" {
		i++
	}

	cmd := SetOption{Name: joinTokens(tokens, 2, i)}
	if cmd.Name == "" {
		return SetOption{}, parseError("setoption", "missing name")
	}

	if i < len(tokens) {
		value := joinTokens(tokens, i+1, len(tokens))
		if value == "" {
			return SetOption{}, parseError("setoption", "missing value")
		}
		cmd.Value = &value
	}

	return cmd, nil
}

// ParsePosition parses "position (startpos | fen <fields>) [moves <moves>]".
func ParsePosition(tokens []string) (Position, error) {
	if len(tokens) < 2 {
		return Position{}, parseError("position", "too few arguments")
	}

	var cmd Position
	i := 1
	switch tokens[i] {
	case StartPos:
		cmd.FEN = StartPos
		i++
	case "fen":
		i++
		start := i
		for i < len(tokens) && tokens[i] != "moves" {
			i++
		}
		cmd.FEN = joinTokens(tokens, start, i)
		if cmd.FEN == "" {
			return Position{}, parseError("position", "FEN string missing")
		}
	default:
		return Position{}, parseError("position", "expected startpos or fen, got '%s'", tokens[i])
	}

	if i < len(tokens) && tokens[i] == "moves" {
		for _, tok := range tokens[i+1:] {
			m, err := ucimove.Parse(tok)
			if err != nil {
				return Position{}, &Error{Command: "position", Msg: "invalid move", Err: err}
			}
			cmd.Moves = append(cmd.Moves, m)
		}
	} else if i < len(tokens) {
		return Position{}, parseError("position", "unexpected token '%s'", tokens[i])
	}

	return cmd, nil
}

// ParseGo parses the "go" command. searchmoves takes moves until the next
// go keyword.
func ParseGo(tokens []string) (Go, error) {
	var cmd Go

	for i := 1; i < len(tokens); i++ {
		next := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", parseError("go", "missing value for %s", tokens[i])
			}
			i++
			return tokens[i], nil
		}

		var err error
		switch tokens[i] {
		case "searchmoves":
			for i+1 < len(tokens) && !goKeywords[tokens[i+1]] {
				i++
				m, perr := ucimove.Parse(tokens[i])
				if perr != nil {
					return Go{}, &Error{Command: "go", Msg: "invalid search move", Err: perr}
				}
				cmd.SearchMoves = append(cmd.SearchMoves, m)
			}
		case "ponder":
			cmd.Ponder = true
		case "infinite":
			cmd.Infinite = true
		case "wtime":
			cmd.WTime, err = goInt64(tokens[i], next)
		case "btime":
			cmd.BTime, err = goInt64(tokens[i], next)
		case "movetime":
			cmd.MoveTime, err = goInt64(tokens[i], next)
		case "winc":
			cmd.WInc, err = goInt(tokens[i], next)
		case "binc":
			cmd.BInc, err = goInt(tokens[i], next)
		case "movestogo":
			cmd.MovesToGo, err = goInt(tokens[i], next)
		case "mate":
			cmd.Mate, err = goInt(tokens[i], next)
		case "depth":
			cmd.Depth, err = goUint64(tokens[i], next)
		case "nodes":
			cmd.Nodes, err = goUint64(tokens[i], next)
		}
		if err != nil {
			return Go{}, err
		}
	}

	return cmd, nil
}

func goInt(key string, next func() (string, error)) (*int, error) {
	s, err := next()
	if err != nil {
		return nil, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &Error{Command: "go", Msg: "invalid integer for " + key, Err: err}
	}
	return &v, nil
}

func goInt64(key string, next func() (string, error)) (*int64, error) {
	s, err := next()
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &Error{Command: "go", Msg: "invalid integer for " + key, Err: err}
	}
	return &v, nil
}

func goUint64(key string, next func() (string, error)) (*uint64, error) {
	s, err := next()
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, &Error{Command: "go", Msg: "invalid integer for " + key, Err: err}
	}
	return &v, nil
}
