package normalizer

import (
	"net/url"
	"strings"
)

// Referrer labels for the two non-host outcomes.
const (
	ReferrerDirect  = "Direct"
	ReferrerUnknown = "Unknown"
)

// referrerRule maps host suffixes to a friendly property name. Rules are
// evaluated in order, first match wins: lobste.rs must precede the t.co
// shortener rule (its domain textually contains "t.co"), t.co must precede
// the general Twitter/X rule or shortened links would fall through to the
// hostname fallback, and the mail.google.com/mail.yahoo.com email rules
// must precede the google./yahoo.com search-engine rules.
type referrerRule struct {
	hosts []string
	label string
}

var referrerRules = []referrerRule{
	// Link aggregators whose domains shadow shortener domains.
	{hosts: []string{"lobste.rs"}, label: "Lobsters"},
	{hosts: []string{"news.ycombinator.com", "hn.algolia.com"}, label: "Hacker News"},

	// Shorteners owned by social networks, before the networks themselves.
	{hosts: []string{"t.co"}, label: "X/Twitter"},
	{hosts: []string{"lnkd.in"}, label: "LinkedIn"},
	{hosts: []string{"fb.me"}, label: "Facebook"},
	{hosts: []string{"youtu.be"}, label: "YouTube"},

	// Email clients (newsletter clicks), before the parent providers whose
	// broader host rules would otherwise capture them.
	{hosts: []string{"mail.google.com"}, label: "Gmail"},
	{hosts: []string{"outlook.live.com", "outlook.office.com"}, label: "Outlook"},
	{hosts: []string{"mail.yahoo.com"}, label: "Yahoo Mail"},
	{hosts: []string{"mail.proton.me", "protonmail.com"}, label: "Proton Mail"},

	// Search engines
	{hosts: []string{"google."}, label: "Google"},
	{hosts: []string{"bing.com"}, label: "Bing"},
	{hosts: []string{"duckduckgo.com"}, label: "DuckDuckGo"},
	{hosts: []string{"yahoo.com", "yahoo.co.jp"}, label: "Yahoo"},
	{hosts: []string{"baidu.com"}, label: "Baidu"},
	{hosts: []string{"yandex.ru", "yandex.com"}, label: "Yandex"},
	{hosts: []string{"ecosia.org"}, label: "Ecosia"},
	{hosts: []string{"kagi.com"}, label: "Kagi"},

	// Social networks
	{hosts: []string{"twitter.com", "x.com"}, label: "X/Twitter"},
	{hosts: []string{"facebook.com", "fb.com"}, label: "Facebook"},
	{hosts: []string{"instagram.com"}, label: "Instagram"},
	{hosts: []string{"linkedin.com"}, label: "LinkedIn"},
	{hosts: []string{"reddit.com"}, label: "Reddit"},
	{hosts: []string{"tiktok.com"}, label: "TikTok"},
	{hosts: []string{"pinterest."}, label: "Pinterest"},
	{hosts: []string{"threads.net"}, label: "Threads"},
	{hosts: []string{"bsky.app"}, label: "Bluesky"},
	{hosts: []string{"mastodon."}, label: "Mastodon"},
	{hosts: []string{"youtube.com"}, label: "YouTube"},
	{hosts: []string{"t.me", "telegram.org"}, label: "Telegram"},
	{hosts: []string{"discord.com", "discordapp.com"}, label: "Discord"},
	{hosts: []string{"whatsapp.com"}, label: "WhatsApp"},
	{hosts: []string{"slack.com"}, label: "Slack"},

	// Developer platforms and communities
	{hosts: []string{"github.com"}, label: "GitHub"},
	{hosts: []string{"gitlab.com"}, label: "GitLab"},
	{hosts: []string{"stackoverflow.com"}, label: "Stack Overflow"},
	{hosts: []string{"dev.to"}, label: "DEV Community"},
	{hosts: []string{"medium.com"}, label: "Medium"},
	{hosts: []string{"substack.com"}, label: "Substack"},
	{hosts: []string{"producthunt.com"}, label: "Product Hunt"},
	{hosts: []string{"indiehackers.com"}, label: "Indie Hackers"},
}

// ParseReferrerSource resolves a raw referrer URL to a traffic source label.
// Empty referrers are Direct traffic; unparseable ones are Unknown. Hosts
// outside the known property table fall back to the cleaned hostname.
func ParseReferrerSource(referrerURL string) string {
	if referrerURL == "" {
		return ReferrerDirect
	}

	parsed, err := url.Parse(referrerURL)
	if err != nil || parsed.Hostname() == "" {
		return ReferrerUnknown
	}

	host := strings.ToLower(parsed.Hostname())
	for _, rule := range referrerRules {
		for _, known := range rule.hosts {
			if matchesHost(host, known) {
				return rule.label
			}
		}
	}

	return strings.TrimPrefix(host, "www.")
}

// matchesHost reports whether host is the known domain, a subdomain of it,
// or (for prefix patterns ending in ".") a ccTLD variant of it.
func matchesHost(host, known string) bool {
	if strings.HasSuffix(known, ".") {
		return strings.Contains(host, known)
	}
	return host == known || strings.HasSuffix(host, "."+known)
}
