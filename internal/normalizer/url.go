package normalizer

import (
	"net/url"
	"strings"
)

// RootPath is the fallback pathname for the site root and for URLs that
// fail to parse.
const RootPath = "/"

// ExtractPath returns the decoded pathname of a URL, optionally with the
// query string and/or fragment appended. The root path and any unparseable
// URL both resolve to "/".
func ExtractPath(rawURL string, includeQuery, includeHash bool) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RootPath
	}

	path := parsed.Path
	if path == "" {
		path = RootPath
	}

	if includeQuery && parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	if includeHash && parsed.Fragment != "" {
		path += "#" + parsed.Fragment
	}

	return path
}

// ExtractHostname returns the lowercased hostname of a URL with a leading
// "www." stripped, or "" when the URL has no parseable host.
func ExtractHostname(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// UTMParams holds campaign attribution parameters extracted from a URL.
// Absent parameters are empty strings, never populated with placeholders.
type UTMParams struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// HasAttribution reports whether any of the primary UTM fields is set.
func (u UTMParams) HasAttribution() bool {
	return u.Source != "" || u.Medium != "" || u.Campaign != ""
}

// ParseUTMParams extracts utm_* parameters from a URL. Parameter names are
// matched case-insensitively; value case is preserved. Unparseable URLs
// yield the zero value.
func ParseUTMParams(rawURL string) UTMParams {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return UTMParams{}
	}

	values := make(map[string]string)
	for key, vals := range parsed.Query() {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		values[strings.ToLower(key)] = vals[0]
	}

	return UTMParams{
		Source:   values["utm_source"],
		Medium:   values["utm_medium"],
		Campaign: values["utm_campaign"],
		Term:     values["utm_term"],
		Content:  values["utm_content"],
	}
}
