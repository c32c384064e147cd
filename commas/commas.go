// Package commas formats counts with thousands separators for console
// output, e.g. node counts and nodes per second.
package commas

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func Int(v int) string {
	return printer.Sprintf("%d", v)
}

func Int64(v int64) string {
	return printer.Sprintf("%d", v)
}

func Uint64(v uint64) string {
	return printer.Sprintf("%d", v)
}
