package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }

// Short returns the leading segment of a new identifier, compact enough for log fields.
func Short() string {
	id := NewFunc()
	if index := strings.IndexByte(id, '-'); index > 0 {
		return id[:index]
	}
	return id
}
