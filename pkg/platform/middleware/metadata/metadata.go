// Package metadata resolves the client address and user agent of a request
// and stores them on the context.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	pstrings "pixpax/pkg/platform/strings"
	"pixpax/pkg/requestcontext"
)

// maxForwardedLength bounds the X-Forwarded-For value that is parsed.
const maxForwardedLength = 512

// TrustedProxies are the networks allowed to report a client address via
// X-Forwarded-For or X-Real-IP. Empty trusts nobody.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts CIDRs and bare addresses, each entry itself
// possibly a comma separated list.
func ParseTrustedProxies(entries ...string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, e := range entries {
		for _, part := range pstrings.SplitList(e) {
			p, err := parsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (t TrustedProxies) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range t {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware stores the client address and User-Agent on the request
// context.
func (t TrustedProxies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), t.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP is the peer address unless the peer is a trusted proxy. Behind
// a trusted proxy the X-Forwarded-For chain is walked from the right and the
// first hop that is not itself trusted wins; X-Real-IP is the fallback.
func (t TrustedProxies) clientIP(r *http.Request) string {
	peer, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !t.trusts(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && len(xff) <= maxForwardedLength {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !t.trusts(hop) || i == 0 {
				return hop.String()
			}
		}
	}
	if rip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return rip.String()
	}
	return peer.String()
}

func remoteAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}
