package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	assert.Equal(t, StateProcessed, Transition(0, 0, 0), "no urls is handled")
	assert.Equal(t, StateProcessed, Transition(1, 1, 2), "partial success")
	assert.Equal(t, StateProcessed, Transition(2, 0, 2))
	assert.Equal(t, StateFailed, Transition(0, 2, 2), "all failed")
	assert.Equal(t, StateUnlabeled, Transition(0, 1, 2), "unreachable mix stays pending")
}

func TestMessageSummary_State(t *testing.T) {
	assert.Equal(t, StateUnlabeled, MessageSummary{Labels: []string{"inbox"}}.State())
	assert.Equal(t, StateProcessed, MessageSummary{Labels: []string{"inbox", "processed"}}.State())
	assert.Equal(t, StateFailed, MessageSummary{Labels: []string{"failed"}}.State())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateUnlabeled.Terminal())
	assert.Equal(t, "", StateUnlabeled.Label())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0", FormatDuration(0))
	assert.Equal(t, "00:12:05", FormatDuration(12*time.Minute+5*time.Second))
	assert.Equal(t, "01:00:00", FormatDuration(time.Hour))
}

func TestNewScrapedArticle_TitleFallback(t *testing.T) {
	a := NewScrapedArticle("https://example.com/a", "", "body")
	assert.Equal(t, "https://example.com/a", a.Title)
}
