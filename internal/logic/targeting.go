package logic

import (
	"net"
	"net/http"
	"strings"

	"github.com/avct/uasurfer"

	"github.com/patrickwarner/promoserve/internal/geoip"
)

// EventContext carries the request-derived attributes attached to
// mirrored analytics events. It never feeds eligibility or ranking:
// targeting in this system is catalog-driven (gender, age, location
// from the client record), while device and country exist only so BI
// dashboards can slice the event stream.
type EventContext struct {
	DeviceType string
	Country    string
}

// DeviceTypeFromUA classifies a raw User-Agent string using uasurfer.
func DeviceTypeFromUA(uaString string) string {
	if uaString == "" {
		return ""
	}
	u := uasurfer.Parse(uaString)
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "mobile"
	case uasurfer.DeviceTablet:
		return "tablet"
	default:
		return "other"
	}
}

// ResolveEventContext extracts device type and country from an HTTP
// request. X-Forwarded-For wins over RemoteAddr so the original client
// survives proxies; a nil GeoIP leaves the country empty.
func ResolveEventContext(r *http.Request, g *geoip.GeoIP) EventContext {
	ec := EventContext{
		DeviceType: DeviceTypeFromUA(r.Header.Get("User-Agent")),
	}

	if g != nil {
		ipStr := r.Header.Get("X-Forwarded-For")
		if ipStr == "" {
			ipStr = r.RemoteAddr
			if host, _, err := net.SplitHostPort(ipStr); err == nil {
				ipStr = host
			}
		} else {
			// X-Forwarded-For can be comma-separated, take first IP
			if idx := strings.Index(ipStr, ","); idx != -1 {
				ipStr = strings.TrimSpace(ipStr[:idx])
			}
		}
		if ip := net.ParseIP(ipStr); ip != nil {
			ec.Country = g.Country(ip)
		}
	}

	return ec
}
