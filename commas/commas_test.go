package commas

import (
	"math"
	"testing"
)

func TestInt64(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0"},
		{in: 999, want: "999"},
		{in: 1000, want: "1,000"},
		{in: 1234567, want: "1,234,567"},
		{in: -1234567, want: "-1,234,567"},
		{in: math.MaxInt64, want: "9,223,372,036,854,775,807"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := Int64(c.in); got != c.want {
				t.Errorf("want: '%s' got: '%s'", c.want, got)
			}
		})
	}
}

func TestIntAndUint64(t *testing.T) {
	if got := Int(-1000); got != "-1,000" {
		t.Errorf("want: '-1,000' got: '%s'", got)
	}
	if got := Uint64(18446744073709551615); got != "18,446,744,073,709,551,615" {
		t.Errorf("want: '18,446,744,073,709,551,615' got: '%s'", got)
	}
}
