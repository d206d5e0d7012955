package replication

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ParseEndpoint turns a configured endpoint into a websocket URL.
//
// A bare "host:port" becomes "wss://host:port/<database>". Full ws:// and
// wss:// URLs are kept; an empty path is completed with the database name.
func ParseEndpoint(endpoint, database string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("replication endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "wss://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("replication endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("replication endpoint %q: scheme must be ws or wss", endpoint)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("replication endpoint %q: missing host", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		if database == "" {
			return nil, fmt.Errorf("replication endpoint %q: missing database", endpoint)
		}
		u.Path = "/" + database
	}
	u.User = nil
	return u, nil
}
