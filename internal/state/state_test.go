package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "rewe:progress:page:attribute=discounted", Key("attribute=discounted"))
}
