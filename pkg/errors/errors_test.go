package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesCode(t *testing.T) {
	err := Precondition("body must not be empty", nil)

	assert.True(t, Is(err, "PRECONDITION_FAILED"))
	assert.False(t, Is(err, "NOT_FOUND"))
	assert.False(t, Is(fmt.Errorf("plain"), "PRECONDITION_FAILED"))
}

func TestIsSeesWrappedAppErrors(t *testing.T) {
	inner := Transient("backend unavailable", nil)
	wrapped := fmt.Errorf("sending message: %w", inner)

	assert.True(t, Is(wrapped, "TRANSIENT"))
}

func TestTaxonomyStatuses(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("Conversation", nil).Status)
	assert.Equal(t, http.StatusServiceUnavailable, Transient("x", nil).Status)
	assert.Equal(t, http.StatusBadRequest, Precondition("x", nil).Status)
	assert.Equal(t, http.StatusBadGateway, SendFailed("x", nil).Status)
}

func TestBestMessagePrefersAppErrorMessage(t *testing.T) {
	err := Transient("backend unavailable", nil)
	assert.Equal(t, "backend unavailable", BestMessage(err, "fallback"))
	assert.Equal(t, "fallback", BestMessage(fmt.Errorf("raw"), "fallback"))
}
