// Package geo resolves visitor countries. The GeoLite2 database is
// optional; when it is absent, resolution falls back to CDN-provided
// country headers or the unknown value.
package geo

import (
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"visitra/internal/config"
)

// UnknownCountry is the fallback when no country could be resolved.
const UnknownCountry = ""

var (
	geoDB  *geoip2.Reader
	once   sync.Once
	logger = slog.Default()

	countryQuery = gountries.New()
	titleCaser   = cases.Title(language.English)
)

// InitLogger sets the logger for the geo package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// InitGeoDB opens the GeoLite2 database if configured and present. Returns
// nil when the database is unavailable; lookup then degrades gracefully.
func InitGeoDB() *geoip2.Reader {
	once.Do(func() {
		cfg := config.GetConfig()
		if cfg.GeoDBPath == "" {
			logger.Debug("GeoIP database path not configured - GeoIP lookups disabled")
			return
		}

		if _, err := os.Stat(cfg.GeoDBPath); os.IsNotExist(err) {
			logger.Info("GeoLite2 database not found - GeoIP lookups disabled",
				slog.String("path", cfg.GeoDBPath))
			return
		}

		reader, err := geoip2.Open(cfg.GeoDBPath)
		if err != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
			return
		}

		logger.Info("GeoLite2 database loaded", slog.String("path", cfg.GeoDBPath))
		geoDB = reader
	})
	return geoDB
}

// Close releases the GeoLite2 reader.
func Close() {
	if geoDB != nil {
		geoDB.Close()
	}
}

// CountryFromIP resolves an IP address to an uppercase ISO 3166-1 code, or
// UnknownCountry when the database is unavailable or the address unknown.
func CountryFromIP(ipAddress string) string {
	if geoDB == nil {
		return UnknownCountry
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return UnknownCountry
	}

	record, err := geoDB.Country(ip)
	if err != nil {
		logger.Debug("GeoIP lookup failed",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return UnknownCountry
	}

	iso := record.Country.IsoCode
	if iso == "" || iso == "--" {
		return UnknownCountry
	}
	return strings.ToUpper(iso)
}

// CountryFromRequest resolves the visitor country, preferring the
// CDN-provided country header over a GeoIP lookup.
func CountryFromRequest(cdnCountryHeader, clientIP string) string {
	header := strings.ToUpper(strings.TrimSpace(cdnCountryHeader))
	if len(header) == 2 && header != "XX" {
		return header
	}
	return CountryFromIP(clientIP)
}

// CountryName resolves an ISO code to a display name. Unknown codes are
// title-cased as-is rather than dropped.
func CountryName(iso string) string {
	if iso == "" {
		return "Unknown"
	}
	country, err := countryQuery.FindCountryByAlpha(iso)
	if err != nil {
		return titleCaser.String(strings.ToLower(iso))
	}
	return country.Name.Common
}
