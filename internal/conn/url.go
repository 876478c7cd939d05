package conn

import (
	"fmt"
	"net/url"
)

// EventPath is the backend's event endpoint.
const EventPath = "/ws"

// DeriveURL maps the configured base URL onto the socket endpoint,
// upgrading the scheme: http becomes ws, https becomes wss. A base that is
// already ws/wss keeps its scheme.
func DeriveURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing server url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server url %q", u.Scheme, base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in server url %q", base)
	}
	u.Path = EventPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
