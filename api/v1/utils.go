package v1

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP resolves the visitor's address behind proxies and CDNs. It
// prefers the first public address from forwarding headers, falling back to
// the socket address. Public IPv4 wins over IPv6 when both appear, since
// the fingerprint should stay stable for dual-stack visitors.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{
		"X-Real-IP",
		"CF-Connecting-IP",
		"True-Client-IP",
		"X-Client-IP",
	} {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPreferredIP(parseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}

	if remoteAddr := c.Context().RemoteAddr().String(); remoteAddr != "" {
		if clean, parsed := normalizeIP(remoteAddr); parsed != nil && !parsed.IsPrivate() && !parsed.IsLoopback() {
			return clean
		}
	}

	if ip := c.IP(); ip != "" && ip != "0.0.0.0" && ip != "::" {
		if clean, parsed := normalizeIP(ip); parsed != nil && !parsed.IsPrivate() && !parsed.IsLoopback() {
			return clean
		}
	}

	// No public address found; the identity layer treats loopback as
	// private and falls back to its unknown sentinel.
	return "127.0.0.1"
}

// selectPreferredIP picks the first public IPv4 from the candidates, or the
// first public IPv6 when no IPv4 is present.
func selectPreferredIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		clean, parsed := normalizeIP(raw)
		if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() {
			continue
		}
		if parsed.Is4() {
			return clean
		}
		if ipv6Fallback == "" {
			ipv6Fallback = clean
		}
	}
	return ipv6Fallback
}

// normalizeIP cleans one raw header value (quotes, zone ids, brackets,
// ports, 4-in-6 mapping) into a canonical address string.
func normalizeIP(raw string) (string, *netip.Addr) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return "", nil
	}

	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		addr := addrPort.Addr()
		if addr.Is4In6() {
			addr = addr.Unmap()
		}
		return addr.String(), &addr
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		if addr.Is4In6() {
			addr = addr.Unmap()
		}
		return addr.String(), &addr
	}

	if host, _, err := net.SplitHostPort(clean); err == nil {
		return normalizeIP(host)
	}
	return "", nil
}

// parseForwardedHeader extracts the for= addresses of an RFC 7239 Forwarded
// header.
func parseForwardedHeader(header string) []string {
	var candidates []string

	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "for=") {
				candidates = append(candidates, strings.TrimPrefix(part, "for="))
			}
		}
	}
	return candidates
}
