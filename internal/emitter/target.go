package emitter

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	NetworkUnix = "unix"
	NetworkTCP  = "tcp"
)

var ErrInvalidTarget = errors.New("invalid target")

// Target is the address of a listening collector.
type Target struct {
	Network string
	Address string
}

// UnixTarget addresses a Unix domain socket.
func UnixTarget(path string) Target {
	return Target{Network: NetworkUnix, Address: path}
}

// TCPTarget addresses a TCP listener.
func TCPTarget(host string, port int) Target {
	return Target{Network: NetworkTCP, Address: net.JoinHostPort(host, strconv.Itoa(port))}
}

// ParseTarget accepts "unix:///path", "unix:path", "tcp://host:port" or a bare socket path.
func ParseTarget(s string) (Target, error) {
	switch {
	case s == "":
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	case strings.HasPrefix(s, "tcp://"):
		addr := strings.TrimPrefix(s, "tcp://")
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		return Target{Network: NetworkTCP, Address: addr}, nil
	case strings.HasPrefix(s, "unix://"):
		return checkUnix(strings.TrimPrefix(s, "unix://"))
	case strings.HasPrefix(s, "unix:"):
		return checkUnix(strings.TrimPrefix(s, "unix:"))
	case strings.Contains(s, "://"):
		return Target{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidTarget, s)
	default:
		return checkUnix(s)
	}
}

func checkUnix(path string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("%w: empty socket path", ErrInvalidTarget)
	}
	return UnixTarget(path), nil
}

func (t Target) String() string {
	return t.Network + "://" + t.Address
}

func (t Target) validate() error {
	if t.Address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidTarget)
	}
	if t.Network != NetworkUnix && t.Network != NetworkTCP {
		return fmt.Errorf("%w: network %q", ErrInvalidTarget, t.Network)
	}
	return nil
}
