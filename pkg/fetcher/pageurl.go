package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var pageParamRE = regexp.MustCompile(`page=\d+`)

// PageURL rewrites the page query parameter of a listing URL to request
// page n: an existing page=N is replaced, otherwise the parameter is
// appended with ? or &.
func PageURL(base string, n int) string {
	if strings.Contains(base, "page=") {
		return pageParamRE.ReplaceAllString(base, fmt.Sprintf("page=%d", n))
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, n)
}

// AbsoluteURL canonicalizes a job link found inside a card: relative
// hrefs are resolved against the listing page URL. Listing URLs carry
// paths and query strings, so resolution follows reference semantics
// rather than origin concatenation.
func AbsoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
