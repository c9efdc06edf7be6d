package util

import (
	"net/url"
	"strings"
)

// AbsoluteURL returns s when it is an absolute http(s) URL with a host.
// Protocol-relative URLs ("//host/path") are upgraded to https. Anything
// else yields "".
func AbsoluteURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return s
}
