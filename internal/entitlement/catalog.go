// AngelaMos | 2026
// catalog.go

package entitlement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
)

type Product struct {
	Code         string
	Kind         Kind
	DurationDays int
	Title        string
	Description  string
	Label        string
	Price        int
	Currency     string
}

type Catalog struct {
	products []Product
	byCode   map[string]Product
}

func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.Code == "" || !p.Kind.Valid() || p.DurationDays <= 0 {
			return nil, fmt.Errorf("product %q: %w", p.Code, core.ErrInvalidInput)
		}
		if _, dup := c.byCode[p.Code]; dup {
			return nil, fmt.Errorf("product %q defined twice: %w", p.Code, core.ErrInvalidInput)
		}
		c.byCode[p.Code] = p
		c.products = append(c.products, p)
	}
	return c, nil
}

func CatalogFromConfig(cfgs []config.ProductConfig) (*Catalog, error) {
	products := make([]Product, 0, len(cfgs))
	for _, pc := range cfgs {
		products = append(products, Product{
			Code:         pc.Code,
			Kind:         Kind(pc.Kind),
			DurationDays: pc.DurationDays,
			Title:        pc.Title,
			Description:  pc.Description,
			Label:        pc.Label,
			Price:        pc.Price,
			Currency:     pc.Currency,
		})
	}
	return NewCatalog(products)
}

func (c *Catalog) Lookup(code string) (Product, bool) {
	p, ok := c.byCode[code]
	return p, ok
}

// MatchPrefix finds the product whose code is the longest prefix of
// payload, so "sub_yearly_bob" resolves to sub_yearly.
func (c *Catalog) MatchPrefix(payload string) (Product, bool) {
	var (
		best  Product
		found bool
	)
	for _, p := range c.products {
		if strings.HasPrefix(payload, p.Code) && len(p.Code) > len(best.Code) {
			best = p
			found = true
		}
	}
	return best, found
}

// Products returns the catalog ordered by duration, longest first, which
// is the order offers are shown in.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationDays > out[j].DurationDays
	})
	return out
}
