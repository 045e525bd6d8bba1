package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalKeepsOriginal(t *testing.T) {
	cause := errors.New("db unreachable")
	err := ErrInternalServer.WithInternal(cause)

	require.Equal(t, ErrInternalServer.Code, err.Code)
	require.True(t, errors.Is(err, cause))
	require.Contains(t, err.Error(), "db unreachable")

	// The shared sentinel must stay untouched.
	require.Nil(t, ErrInternalServer.Internal)
}

func TestFromError(t *testing.T) {
	appErr := New("SOME_CODE", "algo falló", http.StatusTeapot)
	require.Same(t, appErr, FromError(appErr))

	wrapped := FromError(errors.New("plain"))
	require.Equal(t, ErrInternalServer.Code, wrapped.Code)
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)

	require.Nil(t, FromError(nil))
}

func TestAccountLockedStatus(t *testing.T) {
	require.Equal(t, http.StatusLocked, ErrAccountLocked.StatusCode)
	require.Equal(t, http.StatusUnauthorized, ErrInvalidCredentials.StatusCode)
	require.Equal(t, "Usuario o contraseña incorrectos", ErrInvalidCredentials.Message)
}
