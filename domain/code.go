package domain

import "strings"

// NormalizeCode uppercases a session code and reports whether it has the
// required 4-character shape. Callers on the listener-join path route a
// lowercase code to the same session as its uppercased form.
func NormalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 4 {
		return "", false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", false
		}
	}
	return code, true
}
