// AngelaMos | 2026
// grants.go

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
)

// Grants is an in-memory entitlement.Repository. Activate holds a single
// lock across deactivate+insert, mirroring the transactional store.
type Grants struct {
	mu     sync.Mutex
	nextID int64
	rows   []entitlement.Grant

	Err         error
	ExpireCalls int
}

func NewGrants() *Grants {
	return &Grants{}
}

func (g *Grants) GetActive(_ context.Context, userID int64, now time.Time) (*entitlement.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}

	for i := range g.rows {
		row := &g.rows[i]
		if row.UserID != userID || !row.Active {
			continue
		}
		if row.EntitledAt(now) {
			out := *row
			return &out, nil
		}
		row.Active = false
		g.ExpireCalls++
		return nil, nil
	}
	return nil, nil
}

func (g *Grants) Activate(_ context.Context, p entitlement.ActivateParams) (*entitlement.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}

	for i := range g.rows {
		if g.rows[i].UserID == p.UserID {
			g.rows[i].Active = false
		}
	}

	g.nextID++
	row := entitlement.Grant{
		ID:         g.nextID,
		UserID:     p.UserID,
		Kind:       p.Kind,
		StartsAt:   p.StartsAt,
		ExpiresAt:  p.ExpiresAt,
		Active:     true,
		PaymentRef: p.PaymentRef,
	}
	g.rows = append(g.rows, row)
	return &row, nil
}

func (g *Grants) History(_ context.Context, userID int64) ([]entitlement.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []entitlement.Grant
	for i := len(g.rows) - 1; i >= 0; i-- {
		if g.rows[i].UserID == userID {
			out = append(out, g.rows[i])
		}
	}
	return out, nil
}

// Put inserts a row as-is, bypassing activation.
func (g *Grants) Put(row entitlement.Grant) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	row.ID = g.nextID
	g.rows = append(g.rows, row)
}

func (g *Grants) ActiveCount(userID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, row := range g.rows {
		if row.UserID == userID && row.Active {
			n++
		}
	}
	return n
}

var _ entitlement.Repository = (*Grants)(nil)
