// AngelaMos | 2026
// security_test.go

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSecret(t *testing.T) {
	assert.True(t, CompareSecret("s3cret", "s3cret"))
	assert.False(t, CompareSecret("s3cre", "s3cret"))
	assert.False(t, CompareSecret("", ""), "an unset secret never matches")
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestStoreError(t *testing.T) {
	assert.NoError(t, StoreError("op", nil))

	cause := errors.New("conn reset")
	err := StoreError("load grant", cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)

	wrapped := StoreError("activate", err)
	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.Equal(t, "activate: load grant: store unavailable: conn reset", wrapped.Error())
}
