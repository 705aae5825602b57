package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentCache_RoundTrip(t *testing.T) {
	cc, err := Open("", true)
	require.NoError(t, err)
	defer cc.Close()

	body := strings.Repeat("<p>heavy article body</p>", 200)
	require.NoError(t, cc.Put("https://example.com/a", body))

	got, err := cc.Get("https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestContentCache_Miss(t *testing.T) {
	cc, err := Open("", true)
	require.NoError(t, err)
	defer cc.Close()

	_, err = cc.Get("https://example.com/never-stored")
	assert.ErrorIs(t, err, ErrMiss)
}
