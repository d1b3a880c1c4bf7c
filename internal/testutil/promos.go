// AngelaMos | 2026
// promos.go

package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/carterperez-dev/voice-tutor/internal/core"
	"github.com/carterperez-dev/voice-tutor/internal/promo"
)

type redemptionKey struct {
	userID int64
	code   string
}

// Promos is an in-memory promo.Repository.
type Promos struct {
	mu          sync.Mutex
	codes       map[string]*promo.Code
	redemptions map[redemptionKey]struct{}

	Err         error
	RedeemCalls int
}

func NewPromos(defs ...promo.Definition) *Promos {
	p := &Promos{
		codes:       make(map[string]*promo.Code),
		redemptions: make(map[redemptionKey]struct{}),
	}
	_, _ = p.Seed(context.Background(), defs) //nolint:errcheck
	return p
}

func (p *Promos) Validate(_ context.Context, code string) (*promo.Code, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	c, ok := p.codes[promo.Normalize(code)]
	if !ok || !c.Redeemable() {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (p *Promos) HasRedeemed(_ context.Context, userID int64, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return false, p.Err
	}
	_, ok := p.redemptions[redemptionKey{userID, promo.Normalize(code)}]
	return ok, nil
}

func (p *Promos) Redeem(_ context.Context, userID int64, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.RedeemCalls++

	code = promo.Normalize(code)
	c, ok := p.codes[code]
	if !ok || !c.Redeemable() {
		return fmt.Errorf("redeem %s: %w", code, core.ErrPromoExhausted)
	}
	c.CurrentUses++
	p.redemptions[redemptionKey{userID, code}] = struct{}{}
	return nil
}

func (p *Promos) Seed(_ context.Context, defs []promo.Definition) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, d := range defs {
		code := promo.Normalize(d.Code)
		if _, exists := p.codes[code]; exists {
			continue
		}
		p.codes[code] = &promo.Code{
			Code:         code,
			DurationDays: d.DurationDays,
			MaxUses:      d.MaxUses,
			Active:       true,
		}
		n++
	}
	return n, nil
}

func (p *Promos) Uses(code string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.codes[promo.Normalize(code)]; ok {
		return c.CurrentUses
	}
	return 0
}

func (p *Promos) Redemptions(userID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for k := range p.redemptions {
		if k.userID == userID {
			n++
		}
	}
	return n
}

var _ promo.Repository = (*Promos)(nil)
