package configurator

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ExpandAddr normalizes a listener address:
//
//   - "unix:PATH" and anything that looks like a filesystem path become an
//     absolute socket path
//   - a bare port or ":port" binds all IPv4 interfaces
//   - "host:port" is kept, with the port checked
//
// Pass it to WithAddressExpander to normalize listen and listeners.
func ExpandAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return "", errors.New("empty address")
	case strings.HasPrefix(addr, "unix:"):
		return expandPath(strings.TrimPrefix(addr, "unix:"))
	case strings.HasPrefix(addr, "/"), strings.HasPrefix(addr, "~"), strings.HasPrefix(addr, "."):
		return expandPath(addr)
	}

	if _, err := strconv.Atoi(addr); err == nil {
		addr = ":" + addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, port), nil
}
