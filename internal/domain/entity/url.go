package entity

import "net/url"

// domainOf returns the lowercase host of a URL, or "" if it doesn't parse.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
