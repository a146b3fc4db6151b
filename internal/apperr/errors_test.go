package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Network("GET /scrape", errors.New("connection refused"))
	wrapped := fmt.Errorf("refresh: %w", base)

	assert.Equal(t, KindNetwork, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNetwork))
	assert.True(t, IsRetryable(wrapped))
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.Contains(t, wrapped.Error(), "GET /scrape")
}

func TestRetryableByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want bool
	}{
		{Network("op", errors.New("x")), true},
		{Upstream("op", "quota exceeded"), true},
		{Malformed("op", errors.New("missing data")), true},
		{Render("export", errors.New("too many glyphs")), true},
		{Validation("submit", "no composed proposal"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Retryable(), tc.err.Kind)
	}
}

func TestPlainErrorsHaveNoKind(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.False(t, IsRetryable(err))
}

func TestUpstreamDefaultMessage(t *testing.T) {
	assert.Equal(t, "[upstream] GET /submitted: remote service reported failure", Upstream("GET /submitted", "").Error())
}
