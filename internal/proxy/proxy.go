// Package proxy translates proxy configuration into the pieces the browser
// launcher needs: a host:port server argument and, separately, credentials for
// the per-page authentication hook. Chrome does not accept credentials in the
// --proxy-server flag, which is why the two travel apart.
package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"regverify/internal/platform/config"
)

// Egress is the resolved outbound configuration. The zero value means direct
// egress: no proxy flag, no authentication hook.
type Egress struct {
	// Server is the scheme://host:port argument for the browser, with any
	// userinfo stripped.
	Server string
	// Username and Password feed the browser's authentication hook before the
	// first navigation.
	Username string
	Password string
}

// Enabled reports whether a proxy server is configured.
func (e Egress) Enabled() bool {
	return e.Server != ""
}

// Authenticated reports whether out-of-band credentials must be supplied.
func (e Egress) Authenticated() bool {
	return e.Enabled() && e.Username != ""
}

// FromConfig resolves the egress settings. Credentials embedded in the URL are
// extracted; explicit username/password settings override them.
func FromConfig(cfg config.Proxy) (Egress, error) {
	if cfg.Server == "" {
		if cfg.Username != "" || cfg.Password != "" {
			return Egress{}, fmt.Errorf("proxy credentials set without a proxy server")
		}
		return Egress{}, nil
	}

	raw := cfg.Server
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Egress{}, fmt.Errorf("parse proxy server %q: %w", cfg.Server, err)
	}
	if u.Host == "" {
		return Egress{}, fmt.Errorf("proxy server %q has no host", cfg.Server)
	}

	e := Egress{Server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		e.Username = u.User.Username()
		e.Password, _ = u.User.Password()
	}
	if cfg.Username != "" {
		e.Username = cfg.Username
		e.Password = cfg.Password
	}
	return e, nil
}
