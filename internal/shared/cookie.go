package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// SessionCookieName is the cookie that carries a logged-in session.
const SessionCookieName = "MUSIC_U"

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// ResolveCookie turns a --cookie value into a Cookie header value.
//
// The value may be a raw cookie string, a cURL command copied from the
// browser's network panel, or "@path" naming a file that holds either.
// The result must contain the session cookie.
func ResolveCookie(value string) (string, error) {
	value = strings.TrimSpace(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read cookie file: %w", err)
		}
		value = strings.TrimSpace(string(data))
	}

	cookie := value
	if strings.HasPrefix(value, "curl ") {
		var err error
		if cookie, err = CookieFromCurl(value); err != nil {
			return "", err
		}
	}

	if !HasSessionCookie(cookie) {
		return "", fmt.Errorf("%w: cookie has no %s entry", ErrInvalidInput, SessionCookieName)
	}
	return cookie, nil
}

// CookieFromCurl extracts the cookie of a cURL command. A -b/--cookie flag
// wins over a Cookie header.
func CookieFromCurl(cmd string) (string, error) {
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil {
		return firstGroup(m), nil
	}

	for _, m := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(m), ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "cookie") {
			return strings.TrimSpace(value), nil
		}
	}
	return "", fmt.Errorf("%w: no cookie found in curl command", ErrInvalidInput)
}

// HasSessionCookie reports whether cookie carries a non-empty session entry.
func HasSessionCookie(cookie string) bool {
	for part := range strings.SplitSeq(cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == SessionCookieName && value != "" {
			return true
		}
	}
	return false
}

func firstGroup(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
