package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar/errors"
)

func TestNewCoinsNormalizes(t *testing.T) {
	cs, err := NewCoins(
		NewCoin("OBJKT", 2),
		NewCoin("TEZ", 5),
		NewCoin("OBJKT", 3),
		NewCoin("HDAO", 0),
	)
	require.NoError(t, err)

	want := Coins{NewCoin("OBJKT", 5), NewCoin("TEZ", 5)}
	assert.True(t, want.Equals(cs), "got %s", cs)
	assert.NoError(t, cs.Validate())
}

func TestCoinsAddKeepsOrder(t *testing.T) {
	var cs Coins
	var err error
	for _, c := range []Coin{NewCoin("TEZ", 1), NewCoin("ABC", 2), NewCoin("MNO", 3)} {
		cs, err = cs.Add(c)
		require.NoError(t, err)
	}
	assert.NoError(t, cs.Validate())
	assert.Equal(t, int64(2), cs.AmountOf("ABC"))
	assert.Equal(t, int64(1), cs.AmountOf("TEZ"))
}

func TestCoinsSubtract(t *testing.T) {
	cs := Coins{NewCoin("OBJKT", 2), NewCoin("TEZ", 10)}

	got, err := cs.Subtract(NewCoin("TEZ", 4))
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.AmountOf("TEZ"))
	// The receiver is unchanged.
	assert.Equal(t, int64(10), cs.AmountOf("TEZ"))

	// Subtracting to zero drops the entry.
	got, err = got.Subtract(NewCoin("TEZ", 6))
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.AmountOf("TEZ"))
	assert.Equal(t, 1, len(got))

	// More than available fails and balance can never go negative.
	_, err = cs.Subtract(NewCoin("TEZ", 11))
	assert.True(t, errors.ErrInsufficientFunds.Is(err))

	// Absent asset reports zero available.
	_, err = cs.Subtract(NewCoin("HDAO", 1))
	assert.True(t, errors.ErrInsufficientFunds.Is(err))

	// Zero quantity is a no-op line item.
	got, err = cs.Subtract(NewCoin("HDAO", 0))
	require.NoError(t, err)
	assert.True(t, cs.Equals(got))
}

func TestCoinsContains(t *testing.T) {
	cs := Coins{NewCoin("OBJKT", 2), NewCoin("TEZ", 10)}

	assert.True(t, cs.Contains(NewCoin("TEZ", 10)))
	assert.False(t, cs.Contains(NewCoin("TEZ", 11)))
	assert.True(t, cs.Contains(NewCoin("HDAO", 0)))
	assert.True(t, cs.ContainsAll(Coins{NewCoin("OBJKT", 1), NewCoin("TEZ", 3)}))
	assert.False(t, cs.ContainsAll(Coins{NewCoin("HDAO", 1)}))
}

func TestCoinsValidate(t *testing.T) {
	cases := map[string]struct {
		coins   Coins
		wantErr *errors.Error
	}{
		"nil set":    {coins: nil},
		"sorted set": {coins: Coins{NewCoin("ABC", 1), NewCoin("TEZ", 2)}},
		"unsorted":   {coins: Coins{NewCoin("TEZ", 2), NewCoin("ABC", 1)}, wantErr: errors.ErrState},
		"duplicate":  {coins: Coins{NewCoin("TEZ", 1), NewCoin("TEZ", 2)}, wantErr: errors.ErrState},
		"zero entry": {coins: Coins{NewCoin("TEZ", 0)}, wantErr: errors.ErrAmount},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.coins.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
			}
		})
	}
}
