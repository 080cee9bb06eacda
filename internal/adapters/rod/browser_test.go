package rod

import (
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"

	"shopreviews/internal/core/domain"
)

func TestKeyFor(t *testing.T) {
	k, ok := KeyFor("Enter")
	assert.True(t, ok)
	assert.Equal(t, input.Enter, k)

	_, ok = KeyFor("a")
	assert.False(t, ok, "printable characters are inserted as text")
}

func TestFatal(t *testing.T) {
	assert.True(t, fatal(errors.New("write tcp: use of closed network connection")))
	assert.False(t, fatal(errors.New("eval js error: ReferenceError")))

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(errors.New("websocket: close 1006")), domain.ErrDriver)
	assert.NotErrorIs(t, classify(errors.New("navigation timeout")), domain.ErrDriver)
}
