package process

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// toUTF16 converts s to NUL terminated UTF-16, the form the Windows wide
// APIs take.
func toUTF16(s string) ([]uint16, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("utf-16 encode: %w", err)
	}

	u := make([]uint16, len(b)/2+1)
	for i := 0; i+1 < len(b); i += 2 {
		u[i/2] = uint16(b[i]) | uint16(b[i+1])<<8
	}
	return u, nil
}

// commandLine joins the executable and its arguments for CreateProcess,
// quoting every part that contains a space or a tab.
func commandLine(executable string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{executable}, args...) {
		if strings.ContainsAny(s, " \t") {
			s = `"` + s + `"`
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
