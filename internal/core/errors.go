// AngelaMos | 2026
// errors.go

package core

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPromoExhausted   = errors.New("promo code exhausted")
)

// StoreError wraps a storage failure so callers can match it with
// errors.Is(err, ErrStoreUnavailable) while keeping the driver error.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// RedactURL drops the request URL from transport errors. Upstream URLs
// carry credentials (API keys in the query, bot tokens in the path), and
// *url.Error quotes them verbatim. The cause stays wrapped for errors.Is.
func RedactURL(err error) error {
	for {
		var ue *url.Error
		if !errors.As(err, &ue) {
			return err
		}
		err = fmt.Errorf("%s request: %w", ue.Op, ue.Err)
	}
}
