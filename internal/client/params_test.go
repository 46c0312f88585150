package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsEncodeKeepsSafeCharacters(t *testing.T) {
	p := NewParams().
		With("productIds", "1,2,3").
		With("search", "milch & honig!").
		With("q", "ä")

	assert.Equal(t, "productIds=1,2,3&search=milch+%26+honig!&q=%C3%A4", p.Encode())
}

func TestParamsAreImmutable(t *testing.T) {
	base := NewParams().WithInt("page", 1).With("market", "8534540")
	next := base.WithInt("page", 2)

	page, err := base.Int("page")
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	page, err = next.Int("page")
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	assert.Equal(t, "page=2&market=8534540", next.Encode())
}

func TestParamsRepeatedKeys(t *testing.T) {
	p := NewParams().Add("attribute", "vegan").Add("attribute", "organic")

	assert.Equal(t, []string{"vegan", "organic"}, p.Values("attribute"))
	assert.Equal(t, "attribute=vegan&attribute=organic", p.Encode())

	replaced := p.With("attribute", "new")
	assert.Equal(t, "attribute=new", replaced.Encode())
	assert.Equal(t, 2, p.Len())
}

func TestParamsInt(t *testing.T) {
	p := NewParams().With("page", "one")

	_, err := p.Int("page")
	assert.Error(t, err)

	_, err = p.Int("missing")
	assert.Error(t, err)
}
