package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet[string]()
	assert.False(t, set.Contains("red"))

	set.Add("red")
	set.Add("blue")
	set.Add("red")

	assert.True(t, set.Contains("red"))
	assert.True(t, set.Contains("blue"))
	assert.False(t, set.Contains("green"))
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	nested := []any{"x"}
	got := dedupe([]any{"red", "blue", "red", 2.0, 2.0, nested})
	assert.Equal(t, []any{"red", "blue", 2.0, nested}, got)
}
