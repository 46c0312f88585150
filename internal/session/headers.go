package session

import (
	"math/rand/v2"
	"os"
	"strings"
)

var userAgents = map[string]string{
	"firefox": "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:97.0) Gecko/20100101 Firefox/128.0",
	"brave":   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Brave Chrome/83.0.4103.116 Safari/537.36",
	"safari":  "Mozilla/5.0 (Macintosh; Intel Mac OS X 12_2_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Safari/605.1.15",
}

const defaultLanguage = "de-DE"

// UserAgents returns the pool a session picks its user agent from.
func UserAgents() []string {
	agents := make([]string, 0, len(userAgents))
	for _, ua := range userAgents {
		agents = append(agents, ua)
	}
	return agents
}

// DefaultHeaders picks one user agent and derives Accept-Language from the
// process locale.
func DefaultHeaders() map[string]string {
	agents := UserAgents()
	return map[string]string{
		"User-Agent":      agents[rand.IntN(len(agents))],
		"Accept-Language": localeLanguage(os.Getenv),
		"DNT":             "0",
	}
}

// localeLanguage turns "de_DE.UTF-8" into "de-DE".
func localeLanguage(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := getenv(key)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		return strings.ReplaceAll(value, "_", "-")
	}
	return defaultLanguage
}
