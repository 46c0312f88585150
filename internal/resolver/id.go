package resolver

import (
	"net/url"
	"strings"
	"unicode"
)

var productMarkers = []string{"/produkte/", "/p/"}

const categoryMarker = "/c/"

// IDFromURL returns the product id or the category slug a shop URL points
// at, and "" when it points at neither.
//
//	https://www.rewe.de/produkte/gouda-jung-80g/2621809   -> "2621809"
//	https://www.rewe.de/p/gouda-jung-80g/p2621809         -> "2621809"
//	https://www.rewe.de/c/kochen-backen                   -> "kochen-backen"
func IDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := u.Path

	for _, marker := range productMarkers {
		if strings.Contains(path, marker) {
			return productID(path[strings.LastIndex(path, "/")+1:])
		}
	}

	if i := strings.LastIndex(path, categoryMarker); i >= 0 {
		return strings.TrimSuffix(path[i+len(categoryMarker):], "/")
	}

	return ""
}

// productID strips a single letter prefix and accepts only digits.
func productID(segment string) string {
	if len(segment) > 1 && unicode.IsLetter(rune(segment[0])) {
		segment = segment[1:]
	}
	if segment == "" {
		return ""
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return segment
}

// IsCategoryURL reports whether rawURL is a category listing link.
func IsCategoryURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && strings.Contains(u.Path, categoryMarker)
}

// IsProductURL reports whether rawURL is a product detail link.
func IsProductURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, marker := range productMarkers {
		if strings.Contains(u.Path, marker) {
			return true
		}
	}
	return false
}
