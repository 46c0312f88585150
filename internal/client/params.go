package client

import (
	"fmt"
	"strconv"
	"strings"
)

// querySafe are characters the shop API expects to arrive unescaped.
const querySafe = ",!"

type param struct {
	key   string
	value string
}

// Params is an ordered query parameter list. Keys may repeat, which the
// listing endpoint needs for attribute=a&attribute=b. A Params value is never
// mutated: every modifier returns a copy.
type Params struct {
	pairs []param
}

func NewParams() Params {
	return Params{}
}

// With sets key to value, replacing every earlier occurrence in place.
func (p Params) With(key, value string) Params {
	out := Params{pairs: make([]param, 0, len(p.pairs)+1)}
	replaced := false
	for _, kv := range p.pairs {
		if kv.key != key {
			out.pairs = append(out.pairs, kv)
			continue
		}
		if !replaced {
			out.pairs = append(out.pairs, param{key: key, value: value})
			replaced = true
		}
	}
	if !replaced {
		out.pairs = append(out.pairs, param{key: key, value: value})
	}
	return out
}

func (p Params) WithInt(key string, value int) Params {
	return p.With(key, strconv.Itoa(value))
}

// Add appends another value for key.
func (p Params) Add(key, value string) Params {
	out := Params{pairs: make([]param, len(p.pairs), len(p.pairs)+1)}
	copy(out.pairs, p.pairs)
	out.pairs = append(out.pairs, param{key: key, value: value})
	return out
}

// Get returns the first value of key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p.pairs {
		if kv.key == key {
			return kv.value, true
		}
	}
	return "", false
}

// Values returns all values of key in order.
func (p Params) Values(key string) []string {
	var values []string
	for _, kv := range p.pairs {
		if kv.key == key {
			values = append(values, kv.value)
		}
	}
	return values
}

func (p Params) Int(key string) (int, error) {
	value, ok := p.Get(key)
	if !ok {
		return 0, fmt.Errorf("parameter %q not set", key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not an integer: %w", key, err)
	}
	return n, nil
}

func (p Params) Len() int {
	return len(p.pairs)
}

// Encode renders the list as a query string without the leading "?".
// Spaces become "+", commas and exclamation marks stay literal.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(kv.key))
		b.WriteByte('=')
		b.WriteString(escape(kv.value))
	}
	return b.String()
}

func (p Params) String() string {
	return p.Encode()
}

func escape(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c) || strings.IndexByte(querySafe, c) >= 0:
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
