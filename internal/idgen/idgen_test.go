package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	prev := NewFunc
	defer func() { NewFunc = prev }()

	NewFunc = func() string { return "0f8fad5b-d9cb-469f-a165-70867728950e" }
	assert.Equal(t, "0f8fad5b", Short())
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", New())

	NewFunc = func() string { return "plain" }
	assert.Equal(t, "plain", Short())
}
