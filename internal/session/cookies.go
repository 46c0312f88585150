package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// MarketsCookie carries the selected market. The shop expects its value as
// compact JSON that is then form-urlencoded.
const MarketsCookie = "wksMarketsCookie"

type cookieFile struct {
	Cookies map[string]json.RawMessage `json:"cookies"`
}

// LoadCookieFile reads the "cookies" object of a persisted JSON document.
func LoadCookieFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var file cookieFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file %s: %w", path, err)
	}

	cookies := make(map[string]string, len(file.Cookies))
	for name, raw := range file.Cookies {
		value, err := cookieValue(name, raw)
		if err != nil {
			return nil, fmt.Errorf("cookie %s: %w", name, err)
		}
		cookies[name] = value
	}

	return cookies, nil
}

func cookieValue(name string, raw json.RawMessage) (string, error) {
	if name == MarketsCookie {
		compact, err := CompactJSON(raw)
		if err != nil {
			return "", err
		}
		return url.QueryEscape(compact), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return CompactJSON(raw)
}

// CompactJSON re-serializes raw without whitespace and with sorted object
// keys. Output matches what the shop's own clients write: non-ASCII text is
// \uXXXX escaped, integers keep their value and other numbers are written
// in shortest float form ("2.50" -> "2.5", "1e2" -> "100.0").
func CompactJSON(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid JSON value: %w", err)
	}

	var b strings.Builder
	if err := writeCompact(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCompact(b *strings.Builder, v any) error {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case string:
		writeASCIIString(b, v)
	case json.Number:
		n, err := formatNumber(v)
		if err != nil {
			return err
		}
		b.WriteString(n)
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCompact(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeASCIIString(b, k)
			b.WriteByte(':')
			if err := writeCompact(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("unsupported JSON value %T", v)
	}
	return nil
}

func formatNumber(n json.Number) (string, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("invalid number %q", s)
		}
		return i.String(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid number %q: %w", s, err)
	}
	return formatFloat(f), nil
}

// formatFloat writes the shortest round-tripping form, positional for
// exponents in [-4, 16) with at least one fractional digit.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)
	_, expPart, _ := strings.Cut(e, "e")
	if exp, _ := strconv.Atoi(expPart); exp < -4 || exp >= 16 {
		return e
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var shortEscapes = map[rune]string{
	'"':  `\"`,
	'\\': `\\`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// writeASCIIString quotes s, escaping everything outside printable ASCII.
func writeASCIIString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		if esc, ok := shortEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		switch {
		case r >= ' ' && r <= '~':
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(b, `\u%04x`, r)
		}
	}
	b.WriteByte('"')
}

func sortedNames(cookies map[string]string) []string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
