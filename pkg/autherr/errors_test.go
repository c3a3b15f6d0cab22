package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("cardId", "required"), http.StatusBadRequest},
		{Authentication("assertion rejected", nil), http.StatusUnauthorized},
		{Authorization("cardId", "mismatch"), http.StatusForbidden},
		{Session("token invalid", nil), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Status(), "code %s", tt.err.Code)
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "ValidationError: required (target: cardId)", Validation("cardId", "required").Error())
	assert.Equal(t, "AuthenticationError: rejected", Authentication("rejected", nil).Error())
}

func TestUnwrapAndAs(t *testing.T) {
	cause := errors.New("bad signature")
	err := Authentication("assertion rejected", cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("handling callback: %w", err)
	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeAuthentication, got.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
