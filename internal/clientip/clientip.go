// Package clientip はリクエストヘッダからクライアントIPアドレスを取り出す。
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// FromRequest はクライアントIPアドレスを返す。
// 優先順位は X-Forwarded-For（先頭の値）, CF-Connecting-IP, X-Real-IP。
// いずれのヘッダもない場合は空文字列を返す。
// RemoteAddrはプロキシのアドレスになるため参照しない。
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return ""
}

// DefaultTrustedProxies はループバックとプライベートアドレス帯。
// リバースプロキシが同一ホストまたは内部ネットワークにある構成を想定する。
var DefaultTrustedProxies = []string{
	"127.0.0.0/8", "::1/128",
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7",
}

// ParseTrustedProxies はCIDRまたは単一アドレスのリストを解析する。
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// RateLimitKey はレート制限のキーとなるアドレスを返す。
// 接続元がtrustedに含まれる場合のみ識別ヘッダを参照し、それ以外はRemoteAddrのホスト部を使う。
// ヘッダはクライアントが自由に設定できるため、信頼できない接続元の値はキーにしない。
func RateLimitKey(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteHost(r.RemoteAddr)
	if isTrusted(remote, trusted) {
		if ip := FromRequest(r); ip != "" {
			return ip
		}
	}
	return remote
}

func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return strings.Trim(remoteAddr, "[]")
}

func isTrusted(host string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
