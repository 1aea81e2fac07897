package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]Cents{
		"12.50":  1250,
		"0":      0,
		"3":      300,
		"0.005":  1,
		"19.994": 1999,
		"19.995": 2000,
	}
	for input, want := range cases {
		got, err := FromString(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := FromString("twelve")
	require.Error(t, err)
}

func TestStringAlwaysTwoPlaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "25.00", Cents(2500).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-1.10", Cents(-110).String())
}

func TestWholeUnitsFloors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(25), Cents(2500).WholeUnits())
	assert.Equal(t, int64(119), Cents(11999).WholeUnits())
	assert.Equal(t, int64(0), Cents(99).WholeUnits())
	assert.Equal(t, int64(-2), Cents(-150).WholeUnits())
}

func TestApplyRateRoundsHalfUp(t *testing.T) {
	t.Parallel()

	rate := decimal.RequireFromString("0.0825")
	// 25.00 * 0.0825 = 2.0625 -> 2.06
	assert.Equal(t, Cents(206), Cents(2500).ApplyRate(rate))
	// 10.10 * 0.05 = 0.505 -> 0.51
	assert.Equal(t, Cents(51), Cents(1010).ApplyRate(decimal.RequireFromString("0.05")))
	assert.Equal(t, Zero, Cents(2500).ApplyRate(decimal.Zero))
}

func TestTimesAndSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Cents(2500), Cents(1250).Times(2))
	assert.Equal(t, Cents(3750), Sum(1250, 2500))
	assert.Equal(t, FromUnits(3), Cents(300))
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	type line struct {
		Price Cents `json:"price"`
	}
	out, err := json.Marshal(line{Price: 1250})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":12.50}`, string(out))

	var in line
	require.NoError(t, json.Unmarshal([]byte(`{"price":"3.999"}`), &in))
	assert.Equal(t, Cents(400), in.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price":7}`), &in))
	assert.Equal(t, Cents(700), in.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price":"abc"}`), &in))
}
