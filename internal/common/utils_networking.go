package common

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var ErrorInvalidRemoteIp = errors.New("invalid_remote_ip")

// ParseCidrs parses allowlist entries. Bare addresses become single host
// networks (/32 or /128), unparseable entries are skipped with a warning
// and it is an error for a non-empty list to yield nothing
func ParseCidrs(cidrs []string) (validCidrs []*net.IPNet, warnings []string, err error) {
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			ip := net.ParseIP(cidr)
			if ip == nil {
				warnings = append(warnings, fmt.Sprintf("provided address[%s] is invalid, it was skipped", cidr))
				continue
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			validCidrs = append(validCidrs, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, parseErr := net.ParseCIDR(cidr)
		if parseErr != nil {
			warnings = append(warnings, fmt.Sprintf("provided cidr[%s] is invalid, it was skipped", cidr))
			continue
		}
		validCidrs = append(validCidrs, network)
	}
	if len(cidrs) > 0 && len(validCidrs) == 0 {
		return nil, warnings, ErrorInvalidCidrs
	}
	return validCidrs, warnings, nil
}

// RequestIp returns the client address of r as recorded on sessions and
// audit entries. The service runs behind an ingress so the first
// X-Forwarded-For hop wins over RemoteAddr
func RequestIp(r *http.Request) string {
	ip, err := extractRequestIp(r)
	if err != nil {
		return r.RemoteAddr
	}
	return ip.String()
}

func extractRequestIp(r *http.Request) (net.IP, error) {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if parsed := net.ParseIP(strings.TrimSpace(first)); parsed != nil {
			return parsed, nil
		}
	}
	host := r.RemoteAddr
	if splitHost, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = splitHost
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return nil, fmt.Errorf("remote[%s]: %w", r.RemoteAddr, ErrorInvalidRemoteIp)
	}
	return parsed, nil
}

func isIpAllowed(ip net.IP, cidrs []*net.IPNet) bool {
	for _, cidr := range cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}
