package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike_MetacharactersMatchLiterally(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"invoice", "invoice"},
		{"50%", `50\%`},
		{"order_id", `order\_id`},
		{`path\to`, `path\\to`},
		{`100%_done\`, `100\%\_done\\`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, escapeLike(tc.in), "input %q", tc.in)
	}
}
