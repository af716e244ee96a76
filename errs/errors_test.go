package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupClosedSet(t *testing.T) {
	cases := map[string]Category{
		"FetchError":             CategoryFetch,
		"CryptoError":            CategoryCrypto,
		"RuntimeError":           CategoryRuntime,
		"ValidationError":        CategoryValidation,
		"SessionFetchError":      CategoryFetch,
		"SessionCryptoError":     CategoryCrypto,
		"SessionRuntimeError":    CategoryRuntime,
		"SessionValidationError": CategoryValidation,
	}
	for name, want := range cases {
		got, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"", "Error", "TypeError", "fetcherror", "SessionJsError"} {
		_, ok := Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestNameRoundTripsThroughLookup(t *testing.T) {
	for _, c := range []Category{CategoryFetch, CategoryCrypto, CategoryRuntime, CategoryValidation} {
		e := New(c, "X", "Y")
		got, ok := Lookup(e.Name())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(CategoryRuntime, "Oops", "it broke", cause)
	wrapped := fmt.Errorf("executor: %w", e)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.True(t, IsCategory(wrapped, CategoryRuntime))
	assert.False(t, IsCategory(wrapped, CategoryFetch))
	assert.True(t, HasCode(wrapped, CategoryRuntime, "Oops"))
	assert.ErrorIs(t, wrapped, cause)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorString(t *testing.T) {
	e := Validation(CodeGeneric, MsgInvalidBody)
	assert.Equal(t, "ValidationError [Generic]: Body is invalid", e.Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}
