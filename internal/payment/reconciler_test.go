// AngelaMos | 2026
// reconciler_test.go

package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/core"
	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/payment"
	"github.com/carterperez-dev/voice-tutor/internal/testutil"
)

const bob int64 = 1001

type harness struct {
	reconciler *payment.Reconciler
	service    *entitlement.Service
	grants     *testutil.Grants
	sink       *testutil.Sink
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	catalog, err := entitlement.NewCatalog([]entitlement.Product{
		{Code: "sub_monthly", Kind: entitlement.KindMonthly, DurationDays: 30, Price: 499, Currency: "XTR"},
		{Code: "sub_yearly", Kind: entitlement.KindYearly, DurationDays: 365, Price: 2499, Currency: "XTR"},
	})
	require.NoError(t, err)

	h := &harness{
		grants: testutil.NewGrants(),
		sink:   &testutil.Sink{},
		now:    time.Date(2024, time.March, 3, 18, 20, 0, 0, time.UTC),
	}
	h.service = entitlement.NewService(
		h.grants,
		testutil.NewPromos(),
		testutil.NewUsers(),
		catalog,
		h.sink,
		entitlement.WithClock(func() time.Time { return h.now }),
		entitlement.WithLocation(time.UTC),
	)
	h.reconciler = payment.NewReconciler(h.service, catalog, h.sink)
	return h
}

func TestYearlyPaymentWithoutPriorGrant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.reconciler.OnPaymentConfirmed(ctx, payment.Confirmation{
		UserID:    bob,
		Payload:   "sub_yearly_bob",
		Amount:    2499,
		Currency:  "XTR",
		ChargeRef: "charge-abc",
	})
	require.NoError(t, err)
	require.True(t, out.Activated())

	st, err := h.service.Status(ctx, bob)
	require.NoError(t, err)
	assert.True(t, st.Entitled)
	assert.Equal(t, entitlement.KindYearly, st.Kind)
	assert.Equal(t, entitlement.ExpiryFor(h.now, 365, time.UTC), st.ExpiresAt)

	assert.Equal(t, []string{
		analytics.EventPaymentCompleted,
		analytics.EventRevenue,
		analytics.EventSubscriptionActivated,
	}, h.sink.Names())
}

func TestUnrecognizedPayloadDoesNotMutate(t *testing.T) {
	h := newHarness(t)

	out, err := h.reconciler.OnPaymentConfirmed(context.Background(), payment.Confirmation{
		UserID:    bob,
		Payload:   "donation_bob",
		Amount:    10,
		ChargeRef: "charge-x",
	})
	require.NoError(t, err)

	assert.Equal(t, entitlement.PaymentUnknownProduct, out.Result)
	assert.Equal(t, 0, h.grants.ActiveCount(bob))
	assert.Empty(t, h.sink.Names())
}

func TestDuplicateConfirmationRestartsClock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := payment.Confirmation{UserID: bob, Payload: "sub_monthly_bob", ChargeRef: "dup"}

	first, err := h.reconciler.OnPaymentConfirmed(ctx, c)
	require.NoError(t, err)

	h.now = h.now.AddDate(0, 0, 10)
	second, err := h.reconciler.OnPaymentConfirmed(ctx, c)
	require.NoError(t, err)

	assert.True(t, second.Grant.ExpiresAt.After(first.Grant.ExpiresAt))
	assert.Equal(t, 1, h.grants.ActiveCount(bob))
}

func TestStoreErrorSurfaces(t *testing.T) {
	h := newHarness(t)
	h.grants.Err = core.StoreError("activate grant", errors.New("tx aborted"))

	_, err := h.reconciler.OnPaymentConfirmed(context.Background(), payment.Confirmation{
		UserID:  bob,
		Payload: "sub_monthly_bob",
	})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Empty(t, h.sink.Names())
}

func TestPreCheckout(t *testing.T) {
	h := newHarness(t)

	ok, msg := h.reconciler.PreCheckout("sub_monthly_bob")
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, msg = h.reconciler.PreCheckout("sub_unknown")
	assert.True(t, ok, "any subscription payload passes pre-checkout")
	assert.Empty(t, msg)

	ok, msg = h.reconciler.PreCheckout("gift_bob")
	assert.False(t, ok)
	assert.Equal(t, payment.PreCheckoutFail, msg)
}

func TestParseProduct(t *testing.T) {
	h := newHarness(t)

	p, ok := h.reconciler.ParseProduct("sub_monthly_alice_smith")
	require.True(t, ok)
	assert.Equal(t, "sub_monthly", p.Code)

	_, ok = h.reconciler.ParseProduct("monthly")
	assert.False(t, ok)
}
