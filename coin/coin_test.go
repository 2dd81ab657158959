package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar/errors"
)

func TestCoinValidate(t *testing.T) {
	cases := map[string]struct {
		coin    Coin
		wantErr *errors.Error
	}{
		"valid ticker":        {coin: NewCoin("TEZ", 5)},
		"valid token ref":     {coin: NewCoin("fa2:KT1RJ6PbjHpwc3/42", 1)},
		"zero amount":         {coin: NewCoin("TEZ", 0)},
		"negative amount":     {coin: NewCoin("TEZ", -1), wantErr: errors.ErrAmount},
		"empty asset":         {coin: NewCoin("", 1), wantErr: errors.ErrAmount},
		"too short asset":     {coin: NewCoin("ab", 1), wantErr: errors.ErrAmount},
		"overflowing amount":  {coin: NewCoin("TEZ", maxAmount + 1), wantErr: errors.ErrOverflow},
		"asset with space":    {coin: NewCoin("T EZ", 1), wantErr: errors.ErrAmount},
		"leading punctuation": {coin: NewCoin(":TEZ", 1), wantErr: errors.ErrAmount},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.coin.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
			}
		})
	}
}

func TestCoinAdd(t *testing.T) {
	sum, err := NewCoin("TEZ", 3).Add(NewCoin("TEZ", 4))
	require.NoError(t, err)
	assert.Equal(t, NewCoin("TEZ", 7), sum)

	_, err = NewCoin("TEZ", 3).Add(NewCoin("OBJKT", 4))
	assert.True(t, errors.ErrAmount.Is(err))

	_, err = NewCoin("TEZ", maxAmount).Add(NewCoin("TEZ", 1))
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestCoinSplit(t *testing.T) {
	// Per-mille shares floor: 25/1000 of 10 is 0, 100/1000 of 10 is 1.
	assert.Equal(t, int64(0), NewCoin("TEZ", 10).Split(25).Amount)
	assert.Equal(t, int64(1), NewCoin("TEZ", 10).Split(100).Amount)
	assert.Equal(t, int64(250), NewCoin("TEZ", 1000).Split(250).Amount)
	assert.Equal(t, int64(0), NewCoin("TEZ", 0).Split(999).Amount)

	// The largest valid amount splits without the product wrapping.
	assert.Equal(t, int64(115292150460684697), NewCoin("TEZ", maxAmount).Split(25).Amount)
	assert.Equal(t, int64(maxAmount), NewCoin("TEZ", maxAmount).Split(1000).Amount)
	assert.Equal(t, int64(0), NewCoin("TEZ", maxAmount).Split(0).Amount)
}
