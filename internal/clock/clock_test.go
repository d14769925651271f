package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	manual := NewManual(start)
	prev := NowFunc
	NowFunc = manual.Now
	defer func() { NowFunc = prev }()

	assert.Equal(t, start, Now())
	manual.Advance(65 * time.Second)
	assert.Equal(t, 65*time.Second, Since(start))

	manual.Set(start.Add(time.Hour))
	assert.Equal(t, start.Add(time.Hour), Now())
}
