package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visitra/internal/normalizer"
)

func TestParseReferrerSource(t *testing.T) {
	t.Run("empty referrer is direct traffic", func(t *testing.T) {
		assert.Equal(t, normalizer.ReferrerDirect, normalizer.ParseReferrerSource(""))
	})

	t.Run("unparseable referrer is unknown", func(t *testing.T) {
		assert.Equal(t, normalizer.ReferrerUnknown, normalizer.ParseReferrerSource("not a url at all"))
		assert.Equal(t, normalizer.ReferrerUnknown, normalizer.ParseReferrerSource("::::"))
	})

	t.Run("known properties resolve to friendly labels", func(t *testing.T) {
		cases := map[string]string{
			"https://www.google.com/search?q=analytics": "Google",
			"https://google.de/":                        "Google",
			"https://duckduckgo.com/":                   "DuckDuckGo",
			"https://github.com/some/repo":              "GitHub",
			"https://news.ycombinator.com/item?id=1":    "Hacker News",
			"https://mail.google.com/mail/u/0/":         "Gmail",
			"https://old.reddit.com/r/golang":           "Reddit",
		}
		for referrer, want := range cases {
			assert.Equal(t, want, normalizer.ParseReferrerSource(referrer), referrer)
		}
	})

	t.Run("shortener resolves before the parent network", func(t *testing.T) {
		// t.co is X/Twitter's shortener; it must be matched explicitly, the
		// twitter.com rule would never see it.
		assert.Equal(t, "X/Twitter", normalizer.ParseReferrerSource("https://t.co/abc123"))
		assert.Equal(t, "LinkedIn", normalizer.ParseReferrerSource("https://lnkd.in/xyz"))
	})

	t.Run("lobste.rs does not collide with the t.co rule", func(t *testing.T) {
		assert.Equal(t, "Lobsters", normalizer.ParseReferrerSource("https://lobste.rs/s/abcdef"))
	})

	t.Run("email clients resolve before their parent providers", func(t *testing.T) {
		assert.Equal(t, "Gmail", normalizer.ParseReferrerSource("https://mail.google.com/mail/u/0/"))
		assert.Equal(t, "Yahoo Mail", normalizer.ParseReferrerSource("https://mail.yahoo.com/d/folders/1"))
		assert.Equal(t, "Google", normalizer.ParseReferrerSource("https://www.google.com/search?q=x"))
		assert.Equal(t, "Yahoo", normalizer.ParseReferrerSource("https://search.yahoo.com/search?p=x"))
	})

	t.Run("unknown hosts return the cleaned hostname", func(t *testing.T) {
		assert.Equal(t, "example.com", normalizer.ParseReferrerSource("https://www.example.com/page"))
		assert.Equal(t, "blog.somesite.io", normalizer.ParseReferrerSource("https://blog.somesite.io/post"))
	})

	t.Run("subdomains of known properties still match", func(t *testing.T) {
		assert.Equal(t, "Facebook", normalizer.ParseReferrerSource("https://l.facebook.com/l.php?u=x"))
		assert.Equal(t, "X/Twitter", normalizer.ParseReferrerSource("https://mobile.twitter.com/user"))
	})
}

func TestExtractPath(t *testing.T) {
	t.Run("returns decoded pathname", func(t *testing.T) {
		assert.Equal(t, "/docs/getting started", normalizer.ExtractPath("https://example.com/docs/getting%20started", false, false))
	})

	t.Run("root and unparseable URLs default to slash", func(t *testing.T) {
		assert.Equal(t, "/", normalizer.ExtractPath("https://example.com", false, false))
		assert.Equal(t, "/", normalizer.ExtractPath("::::", false, false))
	})

	t.Run("optionally appends query and hash", func(t *testing.T) {
		raw := "https://example.com/search?q=go#results"
		assert.Equal(t, "/search", normalizer.ExtractPath(raw, false, false))
		assert.Equal(t, "/search?q=go", normalizer.ExtractPath(raw, true, false))
		assert.Equal(t, "/search#results", normalizer.ExtractPath(raw, false, true))
		assert.Equal(t, "/search?q=go#results", normalizer.ExtractPath(raw, true, true))
	})

	t.Run("is idempotent for the same input", func(t *testing.T) {
		raw := "https://example.com/a/b?x=1"
		assert.Equal(t,
			normalizer.ExtractPath(raw, true, true),
			normalizer.ExtractPath(raw, true, true))
	})
}

func TestParseUTMParams(t *testing.T) {
	t.Run("extracts all five parameters", func(t *testing.T) {
		utm := normalizer.ParseUTMParams("https://example.com/?utm_source=newsletter&utm_medium=email&utm_campaign=launch&utm_term=analytics&utm_content=cta")
		assert.Equal(t, "newsletter", utm.Source)
		assert.Equal(t, "email", utm.Medium)
		assert.Equal(t, "launch", utm.Campaign)
		assert.Equal(t, "analytics", utm.Term)
		assert.Equal(t, "cta", utm.Content)
		assert.True(t, utm.HasAttribution())
	})

	t.Run("parameter names match case-insensitively, values keep case", func(t *testing.T) {
		utm := normalizer.ParseUTMParams("https://example.com/?UTM_Source=NewsLetter")
		assert.Equal(t, "NewsLetter", utm.Source)
	})

	t.Run("missing parameters stay empty", func(t *testing.T) {
		utm := normalizer.ParseUTMParams("https://example.com/?utm_source=x")
		assert.Equal(t, "x", utm.Source)
		assert.Empty(t, utm.Medium)
		assert.Empty(t, utm.Campaign)
	})

	t.Run("is idempotent for the same input", func(t *testing.T) {
		raw := "https://example.com/?utm_source=a&utm_medium=b"
		assert.Equal(t, normalizer.ParseUTMParams(raw), normalizer.ParseUTMParams(raw))
	})
}

func TestValidateCollectPayload(t *testing.T) {
	valid := normalizer.CollectPayload{
		SiteID:    "site-1",
		SessionID: "sess-1",
		EventType: "pageview",
		URL:       "https://example.com/page",
	}

	t.Run("accepts a complete payload", func(t *testing.T) {
		result := normalizer.ValidateCollectPayload(valid)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("reports every missing field", func(t *testing.T) {
		result := normalizer.ValidateCollectPayload(normalizer.CollectPayload{})
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 3)
	})

	t.Run("rejects unknown event types", func(t *testing.T) {
		p := valid
		p.EventType = "heartbeat"
		result := normalizer.ValidateCollectPayload(p)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "heartbeat")
	})

	t.Run("rejects URLs without a hostname", func(t *testing.T) {
		p := valid
		p.URL = "/relative/only"
		result := normalizer.ValidateCollectPayload(p)
		assert.False(t, result.Valid)
	})
}

func TestParseEventType(t *testing.T) {
	assert.Equal(t, normalizer.EventTypePageView, normalizer.ParseEventType("pageview"))
	assert.Equal(t, normalizer.EventTypeCustom, normalizer.ParseEventType("event"))
	assert.Equal(t, normalizer.EventTypeOutbound, normalizer.ParseEventType("outbound"))
	assert.Equal(t, normalizer.EventTypeUnknown, normalizer.ParseEventType("whatever"))
	assert.Equal(t, "pageview", normalizer.EventTypePageView.String())
}
