package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentimentByCode(t *testing.T) {
	s, ok := SentimentByCode(4)
	require.True(t, ok)
	assert.Equal(t, "joy", s.Label)
	assert.Equal(t, "text-green-600", s.ColorClass)

	_, ok = SentimentByCode(9)
	assert.False(t, ok)
}

func TestSentimentByLabel(t *testing.T) {
	s, ok := SentimentByLabel("anxiety")
	require.True(t, ok)
	assert.Equal(t, 1, s.Code)
	assert.Equal(t, "text-red-600", s.ColorClass)

	_, ok = SentimentByLabel("bliss")
	assert.False(t, ok)
	assert.Equal(t, "text-gray-400", UnknownSentiment.ColorClass)
}

func TestMobileTimestampLayout(t *testing.T) {
	ts, err := time.Parse(MobileTimestampLayout, "2025-03-1409:00:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 0, 5, 0, time.UTC), ts)
}
