package util

import "net/url"

// RedactURL masks credentials in a URL so it can be logged.
// Userinfo passwords and every query parameter value are replaced.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.RawQuery == "" {
		return u.Redacted()
	}
	q := u.Query()
	for key := range q {
		q.Set(key, "REDACTED")
	}
	u.RawQuery = q.Encode()
	return u.Redacted()
}
