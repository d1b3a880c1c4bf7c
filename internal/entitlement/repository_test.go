// AngelaMos | 2026
// repository_test.go

package entitlement_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/promo"
	"github.com/carterperez-dev/voice-tutor/internal/testutil"
)

func activeRows(t *testing.T, repo entitlement.Repository, id int64) int {
	t.Helper()

	history, err := repo.History(context.Background(), id)
	require.NoError(t, err)

	n := 0
	for _, g := range history {
		if g.Active {
			n++
		}
	}
	return n
}

func TestRepositoryConcurrentActivate(t *testing.T) {
	db := testutil.OpenDatabase(t)
	testutil.InsertUser(t, db, userID)
	repo := entitlement.NewRepository(db.DB)

	now := time.Now()
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.Activate(context.Background(), entitlement.ActivateParams{
				UserID:    userID,
				Kind:      entitlement.KindMonthly,
				StartsAt:  now,
				ExpiresAt: entitlement.ExpiryFor(now, 30, time.UTC),
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, activeRows(t, repo, userID))

	history, err := repo.History(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestRepositoryGetActiveExpires(t *testing.T) {
	db := testutil.OpenDatabase(t)
	testutil.InsertUser(t, db, userID)
	repo := entitlement.NewRepository(db.DB)
	ctx := context.Background()

	start := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	granted, err := repo.Activate(ctx, entitlement.ActivateParams{
		UserID:    userID,
		Kind:      entitlement.KindPromo,
		StartsAt:  start,
		ExpiresAt: entitlement.ExpiryFor(start, 3, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, granted.Active)

	got, err := repo.GetActive(ctx, userID, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, granted.ID, got.ID)

	got, err = repo.GetActive(ctx, userID, start.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, activeRows(t, repo, userID))

	got, err = repo.GetActive(ctx, userID, start.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryActivateKeepsPaymentRef(t *testing.T) {
	db := testutil.OpenDatabase(t)
	testutil.InsertUser(t, db, userID)
	repo := entitlement.NewRepository(db.DB)

	ref := "tg-charge-1"
	now := time.Now()
	g, err := repo.Activate(context.Background(), entitlement.ActivateParams{
		UserID:     userID,
		Kind:       entitlement.KindYearly,
		StartsAt:   now,
		ExpiresAt:  entitlement.ExpiryFor(now, 365, time.UTC),
		PaymentRef: &ref,
	})
	require.NoError(t, err)

	require.NotNil(t, g.PaymentRef)
	assert.Equal(t, ref, *g.PaymentRef)
	assert.Equal(t, entitlement.KindYearly, g.Kind)
}

func TestServiceConcurrentPaymentsOnDatabase(t *testing.T) {
	db := testutil.OpenDatabase(t)
	testutil.InsertUser(t, db, userID)
	repo := entitlement.NewRepository(db.DB)

	catalog, err := entitlement.NewCatalog([]entitlement.Product{
		{Code: "sub_monthly", Kind: entitlement.KindMonthly, DurationDays: 30},
		{Code: "sub_yearly", Kind: entitlement.KindYearly, DurationDays: 365},
	})
	require.NoError(t, err)

	svc := entitlement.NewService(
		repo,
		promo.NewRepository(db.DB),
		testutil.NewUsers(),
		catalog,
		&testutil.Sink{},
		entitlement.WithLocation(time.UTC),
	)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := "sub_monthly"
			if i%2 == 0 {
				code = "sub_yearly"
			}
			_, errs[i] = svc.ActivateByPayment(context.Background(), userID, code, fmt.Sprintf("charge-%d", i))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, activeRows(t, repo, userID))
}
