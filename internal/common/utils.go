package common

import "strings"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// HasToken returns true if any whitespace-separated token of s equals one of
// tokens. Report groups such as CAVOK must match whole, not as substrings.
func HasToken(s string, tokens ...string) bool {
	for _, field := range strings.Fields(s) {
		for _, tok := range tokens {
			if field == tok {
				return true
			}
		}
	}
	return false
}
