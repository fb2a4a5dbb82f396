package pool

import (
	"fmt"
	"net/url"
	"strings"
)

// Credentials authenticate against a proxy.
type Credentials struct {
	Username string
	Password string
}

// Endpoint is a configured forward proxy.
type Endpoint struct {
	// Address is the proxy URL without user information.
	Address *url.URL

	// Credentials is nil for anonymous proxies.
	Credentials *Credentials
}

// NewEndpoint parses a proxy address such as "http://10.0.0.1:3128" or
// "10.0.0.1:3128". Credentials embedded in the address are used when creds
// is nil.
func NewEndpoint(address string, creds *Credentials) (*Endpoint, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, configError("address", fmt.Errorf("%w: %v", ErrInvalidAddress, err))
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, configError("address", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, u.Scheme))
	}
	if u.Host == "" {
		return nil, configError("address", fmt.Errorf("%w: missing host", ErrInvalidAddress))
	}

	if creds == nil && u.User != nil {
		pass, _ := u.User.Password()
		creds = &Credentials{Username: u.User.Username(), Password: pass}
	}
	u.User = nil

	return &Endpoint{Address: u, Credentials: creds}, nil
}

// ProxyURL returns the address with credentials attached, suitable for
// http.ProxyURL.
func (e *Endpoint) ProxyURL() *url.URL {
	u := *e.Address
	if e.Credentials != nil && e.Credentials.Username != "" {
		u.User = url.UserPassword(e.Credentials.Username, e.Credentials.Password)
	}
	return &u
}

// String returns the display address. Credentials are never included.
func (e *Endpoint) String() string {
	return e.Address.String()
}
