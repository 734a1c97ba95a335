package denylist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_AddAndContains(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	defer m.Close()

	m.Add("token-a", time.Minute)
	assert.True(t, m.Contains("token-a"))
	assert.False(t, m.Contains("token-b"))
}

func TestMemory_EntriesExpire(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	defer m.Close()

	m.Add("short-lived", 20*time.Millisecond)
	assert.True(t, m.Contains("short-lived"))

	time.Sleep(40 * time.Millisecond)
	assert.False(t, m.Contains("short-lived"))
}

func TestMemory_NonPositiveTTLIgnored(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	defer m.Close()

	m.Add("already-dead", 0)
	m.Add("negative", -time.Second)
	assert.False(t, m.Contains("already-dead"))
	assert.False(t, m.Contains("negative"))
}
