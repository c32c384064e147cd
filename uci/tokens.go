package uci

import "strings"

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Tokenize splits a line on runs of ASCII whitespace.
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, isSpace)
}

func StripTrailingWhitespace(line string) string {
	return strings.TrimRightFunc(line, isSpace)
}

// joinTokens rejoins tokens[from:to] with single spaces.
func joinTokens(tokens []string, from, to int) string {
	if from >= to {
		return ""
	}
	return strings.Join(tokens[from:to], " ")
}
