// Package device derives a coarse client fingerprint from the User-Agent.
// The fingerprint is attached to redemption events; it never includes the IP.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"pixpax/pkg/requestcontext"
)

// Fingerprint hashes browser family, major version, OS and form factor.
// Returns "" for an empty User-Agent.
func Fingerprint(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()

	major := "unknown"
	if before, _, _ := strings.Cut(version, "."); before != "" {
		major = before
	}
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}
	if ua.Bot() {
		platform = "bot"
	}

	data := fmt.Sprintf("%s|%s|%s|%s", normalize(browser), major, normalize(ua.OS()), platform)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

// DisplayName renders "Browser on OS", e.g. "Safari on iPhone".
func DisplayName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Mobile() {
		if p := ua.Platform(); p != "" && browser != "" {
			return browser + " on " + p
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

// Device attaches the fingerprint and display name computed from the
// User-Agent already stored by the metadata middleware.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			ctx = requestcontext.WithDeviceFingerprint(ctx, Fingerprint(ua))
			ctx = requestcontext.WithDeviceName(ctx, DisplayName(ua))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
