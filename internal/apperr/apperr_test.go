package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resolve: %w", Wrap(cause, KindStoreUnavailable, "profiles.Get", "profile store unavailable"))

	require.Equal(t, KindStoreUnavailable, KindOf(err))
	require.True(t, errors.Is(err, cause))
	require.True(t, errors.Is(err, E(KindStoreUnavailable)))
	require.False(t, errors.Is(err, E(KindProfileMissing)))
	require.Equal(t, "profile store unavailable", Message(err))
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, KindStoreUnavailable, "op", "msg"))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("x")))
	require.Equal(t, "something went wrong, please try again", Message(errors.New("x")))
}

func TestFieldErr(t *testing.T) {
	err := FieldErr(KindWeakPassword, "accounts.SignUp", "password", "password too short")
	require.True(t, err.Kind.IsCredential())
	require.Equal(t, []FieldError{{Field: "password", Message: "password too short"}}, FieldsOf(err))
	require.Equal(t, "accounts.SignUp: password too short", err.Error())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "partial_save", KindPartialSave.String())
	require.Equal(t, "unknown", Kind(999).String())
	require.False(t, KindProfileMissing.IsCredential())
}
