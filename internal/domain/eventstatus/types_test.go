package eventstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{WantToGo, Going, Went, Rated, NotInterested} {
		assert.True(t, s.Valid(), string(s))
	}

	for _, s := range []Status{"", "maybe", "WANT_TO_GO", "interested"} {
		assert.False(t, s.Valid(), string(s))
	}
}
