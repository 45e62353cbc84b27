package identity

import (
	"net"
	"strings"
)

// UnknownIP is the sentinel the collection boundary uses when no client IP
// could be determined.
const UnknownIP = "unknown"

var privateIPBlocks = []*net.IPNet{
	parseCIDR("127.0.0.0/8"),    // loopback
	parseCIDR("10.0.0.0/8"),     // RFC 1918
	parseCIDR("172.16.0.0/12"),  // RFC 1918
	parseCIDR("192.168.0.0/16"), // RFC 1918
}

func parseCIDR(s string) *net.IPNet {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		panic("identity: invalid built-in CIDR " + s)
	}
	return block
}

// IsPrivateIP reports whether an IP string belongs to a loopback or RFC 1918
// range. Empty strings and the "unknown" sentinel count as private (they
// cannot identify a visitor), while a syntactically invalid non-empty string
// does not: it matches no range, so detection fails open.
func IsPrivateIP(ip string) bool {
	if ip == "" || ip == UnknownIP {
		return true
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, block := range privateIPBlocks {
		if block.Contains(parsed) {
			return true
		}
	}
	return false
}

// ShouldTrack honors Do-Not-Track and Global-Privacy-Control signals.
// Header names are matched case-insensitively; any of them set to "1"
// disables tracking.
func ShouldTrack(headers map[string]string) bool {
	for name, value := range headers {
		switch strings.ToLower(name) {
		case "dnt", "sec-gpc":
			if strings.TrimSpace(value) == "1" {
				return false
			}
		}
	}
	return true
}

// Signatures of crawlers, headless browsers, link-preview fetchers and
// monitoring agents. Matched case-insensitively as substrings.
var botSignatures = []string{
	"bot", "crawler", "spider", "crawling",
	"googlebot", "bingbot", "yandexbot", "duckduckbot", "baiduspider",
	"slurp", "facebookexternalhit", "twitterbot", "linkedinbot",
	"whatsapp", "telegrambot", "discordbot", "slackbot",
	"headlesschrome", "phantomjs", "puppeteer", "playwright", "selenium",
	"lighthouse", "pagespeed", "gtmetrix", "pingdom", "uptimerobot",
	"statuscake", "site24x7", "newrelicpinger",
	"curl/", "wget/", "python-requests", "go-http-client", "okhttp",
	"apachebench", "httpclient", "scrapy",
}

// IsBot reports whether a user agent matches a known automated-traffic
// signature. Collaborators decide what to do with the answer; this package
// only exposes the predicate.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
