package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	for _, in := range []string{"l", "long", "LONG", " Long "} {
		side, err := ParseSide(in)
		require.NoError(t, err, in)
		assert.Equal(t, SideLong, side)
	}
	for _, in := range []string{"s", "short", "SHORT"} {
		side, err := ParseSide(in)
		require.NoError(t, err, in)
		assert.Equal(t, SideShort, side)
	}
	_, err := ParseSide("sideways")
	assert.Error(t, err)
}

func TestSide_PnL(t *testing.T) {
	open := decimal.NewFromInt(2000)
	current := decimal.NewFromInt(2500)

	assert.True(t, SideLong.PnL(open, current).Equal(decimal.NewFromInt(500)))
	assert.True(t, SideShort.PnL(open, current).Equal(decimal.NewFromInt(-500)))
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("timeout")

	var err error = &PriceServiceError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "timeout")

	err = &StoreError{Op: "close position", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to close position: timeout", err.Error())

	err = &LedgerError{Tickers: []string{"ETH", "DOGE"}}
	assert.Equal(t, "could not price ticker(s): ETH, DOGE", err.Error())
}
