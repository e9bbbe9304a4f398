package dbx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "", want: "%%"},
		{in: "report", want: "%report%"},
		{in: "50%", want: `%50\%%`},
		{in: "snake_case", want: `%snake\_case%`},
		{in: `back\slash`, want: `%back\\slash%`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPattern(tt.in), tt.in)
	}
}
