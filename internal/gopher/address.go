package gopher

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPort = 70

	TypeText      = '0'
	TypeDirectory = '1'
	TypeIndex     = '7'
	TypeBinary    = '9'
	TypeGIF       = 'g'
	TypeHTML      = 'h'
	TypeImage     = 'I'
)

// Address is a parsed gopher[s]://host[:port]/<type><selector>[%09query][?query] locator.
type Address struct {
	Host     string
	Port     int
	Type     byte
	Selector string
	Query    string
	HasQuery bool
	Secure   bool
}

func ParseAddress(locator string) (*Address, error) {
	scheme, rest, ok := strings.Cut(locator, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadAddress, locator)
	}

	addr := &Address{Port: DefaultPort, Type: TypeDirectory}
	switch strings.ToLower(scheme) {
	case "gopher":
	case "gophers":
		addr.Secure = true
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrBadAddress, scheme)
	}

	hostport, path, _ := strings.Cut(rest, "/")
	if i := strings.IndexAny(hostport, "?#"); i >= 0 {
		path = ""
		hostport = hostport[:i]
	}

	if err := addr.setHost(hostport); err != nil {
		return nil, err
	}

	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}

	if i := strings.Index(path, "%09"); i >= 0 {
		addr.Query, addr.HasQuery = unescape(path[i+3:]), true
		path = path[:i]
	} else if i := strings.IndexByte(path, '?'); i >= 0 {
		addr.Query, addr.HasQuery = unescape(path[i+1:]), true
		path = path[:i]
	}

	if path != "" {
		addr.Type = path[0]
		addr.Selector = unescape(path[1:])
	}

	return addr, nil
}

func (a *Address) setHost(hostport string) error {
	host := hostport
	if strings.HasPrefix(hostport, "[") || strings.Count(hostport, ":") == 1 {
		h, p, err := net.SplitHostPort(hostport)
		if err != nil {
			// "[::1]" without a port
			h = strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
			p = ""
		}
		host = h

		if p != "" {
			port, err := strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("%w: %q", ErrBadPort, p)
			}
			a.Port = port
		}
	}

	if host == "" {
		return fmt.Errorf("%w: empty host", ErrBadAddress)
	}

	a.Host = host
	return nil
}

func (a *Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Request is the line sent to the server, CRLF included.
func (a *Address) Request() string {
	if a.HasQuery {
		return a.Selector + "\t" + a.Query + "\r\n"
	}
	return a.Selector + "\r\n"
}

func (a *Address) URL() string {
	scheme := "gopher"
	if a.Secure {
		scheme = "gophers"
	}
	return itemURL(scheme, a.Host, a.Port, a.Type, a.Selector)
}

func itemURL(scheme, host string, port int, itemType byte, selector string) string {
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/" + string(itemType) + escapeSelector(selector)
}

func escapeSelector(selector string) string {
	return (&url.URL{Path: selector}).EscapedPath()
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
