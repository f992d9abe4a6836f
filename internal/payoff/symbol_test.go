package payoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Cash(t *testing.T) {
	sym, err := Parse("CASH")
	require.NoError(t, err)
	assert.Equal(t, Cash, sym.Kind)
}

func TestParse_Underlying(t *testing.T) {
	sym, err := Parse("A")
	require.NoError(t, err)
	assert.Equal(t, Underlying, sym.Kind)
	assert.Equal(t, PileA, sym.Underlying)
}

func TestParse_Spread(t *testing.T) {
	sym, err := Parse("A - B")
	require.NoError(t, err)
	assert.Equal(t, Spread, sym.Kind)
	assert.Equal(t, PileA, sym.Minuend)
	assert.Equal(t, PileB, sym.Subtrahend)
}

func TestParse_Option(t *testing.T) {
	sym, err := Parse("A-25-CALL")
	require.NoError(t, err)
	assert.Equal(t, Option, sym.Kind)
	assert.Equal(t, PileA, sym.Underlying)
	assert.Equal(t, int64(25), sym.Strike)
	assert.Equal(t, Call, sym.OptionType)
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := Parse("NOT-A-SYMBOL-AT-ALL-REALLY")
	assert.Error(t, err)

	_, err = Parse("A-abc-CALL")
	assert.Error(t, err)
}

func TestSettle_OptionsFloorAtZero(t *testing.T) {
	piles := map[Pile]int64{PileA: 20, PileB: 30}

	call, _ := Parse("A-25-CALL")
	assert.Equal(t, int64(0), Settle(call, piles)) // out of the money

	put, _ := Parse("A-25-PUT")
	assert.Equal(t, int64(5), Settle(put, piles))

	spread, _ := Parse("B - A")
	assert.Equal(t, int64(10), Settle(spread, piles))

	cash, _ := Parse("CASH")
	assert.Equal(t, int64(1), Settle(cash, piles))
}
