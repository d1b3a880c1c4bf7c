// AngelaMos | 2026
// catalog_test.go

package entitlement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := NewCatalog([]Product{
		{Code: "sub_monthly", Kind: KindMonthly, DurationDays: 30, Price: 499, Currency: "XTR"},
		{Code: "sub_yearly", Kind: KindYearly, DurationDays: 365, Price: 2499, Currency: "XTR"},
	})
	require.NoError(t, err)
	return c
}

func TestCatalogMatchPrefix(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{payload: "sub_yearly_bob", want: "sub_yearly", ok: true},
		{payload: "sub_monthly_", want: "sub_monthly", ok: true},
		{payload: "sub_monthly", want: "sub_monthly", ok: true},
		{payload: "sub_weekly_bob", ok: false},
		{payload: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			p, ok := c.MatchPrefix(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, p.Code)
		})
	}
}

func TestCatalogPrefersLongestCode(t *testing.T) {
	c, err := NewCatalog([]Product{
		{Code: "sub_year", Kind: KindYearly, DurationDays: 300},
		{Code: "sub_yearly", Kind: KindYearly, DurationDays: 365},
	})
	require.NoError(t, err)

	p, ok := c.MatchPrefix("sub_yearly_alice")
	require.True(t, ok)
	assert.Equal(t, 365, p.DurationDays)
}

func TestCatalogProductsLongestFirst(t *testing.T) {
	products := testCatalog(t).Products()

	require.Len(t, products, 2)
	assert.Equal(t, "sub_yearly", products[0].Code)
	assert.Equal(t, "sub_monthly", products[1].Code)
}

func TestNewCatalogRejectsBadProducts(t *testing.T) {
	_, err := NewCatalog([]Product{
		{Code: "sub_monthly", Kind: KindMonthly, DurationDays: 30},
		{Code: "sub_monthly", Kind: KindMonthly, DurationDays: 31},
	})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = NewCatalog([]Product{{Code: "sub_x", Kind: "weekly", DurationDays: 7}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = NewCatalog([]Product{{Code: "sub_x", Kind: KindMonthly}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
