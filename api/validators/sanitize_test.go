package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "trims", in: "  Margherita  ", want: "Margherita"},
		{name: "collapses whitespace", in: "Extra \t\n cheese", want: "Extra cheese"},
		{name: "drops control characters", in: "Tea\x00\x07 Latte", want: "Tea Latte"},
		{name: "cuts on runes", in: "Crème brûlée", limit: 5, want: "Crème"},
		{name: "no trailing space after cut", in: "Pad Thai", limit: 4, want: "Pad"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeString(tc.in, tc.limit))
		})
	}
}
