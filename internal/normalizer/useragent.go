// Package normalizer turns raw collection payloads into normalized event
// fields: user agent classification, referrer labeling, URL path and UTM
// extraction. All functions are pure; parse failures resolve to documented
// fallback values, never errors.
package normalizer

import "strings"

// Fallback labels for unparseable inputs.
const (
	UnknownBrowser = "Unknown"
	UnknownOS      = "Unknown"

	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
)

// UserAgent holds the classified fields of a user agent string.
type UserAgent struct {
	Browser    string
	DeviceType string
	OS         string
}

// uaRule pairs an ordered set of user agent tokens with the label to apply
// when any of them is present and none of the absent tokens is. Rules are
// evaluated first-match-wins, so the slice order is the disambiguation order.
type uaRule struct {
	tokens []string
	absent []string
	label  string
}

// Tablet rules come before mobile rules: tablet user agents often also carry
// a "Mobile" token (iPads in particular), so checking mobile first would
// misclassify them. Android tablets are the inverse case: they carry
// "Android" but omit the "Mobile" token that Android phones include.
var deviceRules = []uaRule{
	{tokens: []string{"iPad", "Tablet", "Kindle", "Silk/"}, label: DeviceTablet},
	{tokens: []string{"Android"}, absent: []string{"Mobile"}, label: DeviceTablet},
	{tokens: []string{"Mobile", "iPhone", "iPod", "Android", "webOS", "BlackBerry", "Windows Phone", "Opera Mini"}, label: DeviceMobile},
}

// Vendor-specific tokens are listed before the generic Chrome token because
// rebranded Chromium browsers (Edge, Opera, Samsung Internet, Brave) embed a
// Chrome-compatible token as well.
var browserRules = []uaRule{
	{tokens: []string{"Edg/", "Edge/", "EdgiOS"}, label: "Edge"},
	{tokens: []string{"OPR/", "Opera"}, label: "Opera"},
	{tokens: []string{"SamsungBrowser"}, label: "Samsung Internet"},
	{tokens: []string{"Brave"}, label: "Brave"},
	{tokens: []string{"Vivaldi"}, label: "Vivaldi"},
	{tokens: []string{"CriOS", "Chrome"}, label: "Chrome"},
	{tokens: []string{"FxiOS", "Firefox"}, label: "Firefox"},
	{tokens: []string{"MSIE", "Trident/"}, label: "Internet Explorer"},
	{tokens: []string{"Safari"}, label: "Safari"},
}

// iOS is checked before macOS: iOS user agents contain "like Mac OS X".
var osRules = []uaRule{
	{tokens: []string{"iPhone", "iPad", "iPod"}, label: "iOS"},
	{tokens: []string{"Macintosh", "Mac OS X"}, label: "macOS"},
	{tokens: []string{"Windows Phone"}, label: "Windows Phone"},
	{tokens: []string{"Windows"}, label: "Windows"},
	{tokens: []string{"Android"}, label: "Android"},
	{tokens: []string{"CrOS"}, label: "ChromeOS"},
	{tokens: []string{"Linux", "X11"}, label: "Linux"},
}

// ParseUserAgent classifies a raw user agent string into browser, device
// type and operating system. An empty input yields the documented defaults.
func ParseUserAgent(ua string) UserAgent {
	if ua == "" {
		return UserAgent{Browser: UnknownBrowser, DeviceType: DeviceDesktop, OS: UnknownOS}
	}

	return UserAgent{
		Browser:    matchFirst(ua, browserRules, UnknownBrowser),
		DeviceType: matchFirst(ua, deviceRules, DeviceDesktop),
		OS:         matchFirst(ua, osRules, UnknownOS),
	}
}

func matchFirst(ua string, rules []uaRule, fallback string) string {
	for _, rule := range rules {
		if containsAny(ua, rule.tokens) && !containsAny(ua, rule.absent) {
			return rule.label
		}
	}
	return fallback
}

func containsAny(ua string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}
