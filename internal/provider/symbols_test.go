package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTicker(t *testing.T) {
	for _, ok := range []string{"AAPL", "BRK.B", "BF-B", "^GSPC", "A"} {
		assert.NoError(t, ValidateTicker(ok), ok)
	}
	for _, bad := range []string{"", "AAPL$", "TOOLONGSYMBOL", "aapl", "AA PL"} {
		err := ValidateTicker(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidTicker), bad)
	}
}

func TestParseTickers(t *testing.T) {
	got := ParseTickers(" aapl, msft ;\nnvda,,aapl\t")
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "AAPL"}, got)
	assert.Empty(t, ParseTickers(" , ;"))
}
