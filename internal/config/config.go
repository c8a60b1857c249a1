// Package config parses the command lines of the chat programs. Flags take
// their defaults from the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/omochice/duplex-chat/pkg/protocol"
)

// DefaultIdleTimeout is the idle read limit of a point-to-point session.
const DefaultIdleTimeout = 900 * time.Second

var (
	ErrNoMode        = errors.New("exactly one of -active or -passive is required")
	ErrNoPeer        = errors.New("no peer specified")
	ErrNoGroup       = errors.New("no multicast address specified")
	ErrInvalidPort   = errors.New("invalid port")
	ErrInvalidName   = errors.New("name must be 1 to 255 bytes without spaces")
	ErrInvalidGroup  = errors.New("not a multicast address")
	ErrBadTransport  = errors.New("unknown transport")
	ErrNoSubject     = errors.New("no subject specified")
	ErrInvalidWSPath = errors.New("websocket path must start with /")
)

// Mode selects which side opens the connection.
type Mode int

const (
	ModeActive Mode = iota
	ModePassive
)

func (m Mode) String() string {
	if m == ModePassive {
		return "passive"
	}
	return "active"
}

// Point-to-point transports.
const (
	TransportTCP = "tcp"
	TransportWS  = "ws"
)

// Group transports.
const (
	TransportUDP   = "udp"
	TransportNATS  = "nats"
	TransportRedis = "redis"
)

// Chat configures the point-to-point program.
type Chat struct {
	Mode        Mode
	Peer        string
	Port        int
	Name        string
	Transport   string
	WSPath      string
	IdleTimeout time.Duration
}

// Address returns the host:port to dial in active mode or to listen on in
// passive mode.
func (c *Chat) Address() string {
	if c.Mode == ModePassive {
		return net.JoinHostPort("", strconv.Itoa(c.Port))
	}
	return net.JoinHostPort(c.Peer, strconv.Itoa(c.Port))
}

// URL returns the WebSocket URL of the peer.
func (c *Chat) URL() string {
	u := url.URL{Scheme: "ws", Host: c.Address(), Path: c.WSPath}
	return u.String()
}

// ParseChat parses the point-to-point command line. args excludes the
// program name. Usage errors are written to output.
func ParseChat(args []string, output io.Writer) (*Chat, error) {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(output)

	c := &Chat{}
	active := fs.Bool("active", false, "Connect to a waiting peer")
	passive := fs.Bool("passive", false, "Wait for a peer to connect")
	fs.StringVar(&c.Peer, "peer", "", "Peer host name or address (active mode)")
	fs.IntVar(&c.Port, "port", getEnvAsInt(EnvPort, 0), "Peer port, or the port to listen on")
	fs.StringVar(&c.Name, "name", getEnv(EnvName, ""), "Your display name (prompted when empty)")
	fs.StringVar(&c.Transport, "transport", TransportTCP, "Transport used in active mode: tcp or ws")
	fs.StringVar(&c.WSPath, "ws-path", "/", "WebSocket path in active ws mode")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", getEnvAsDuration(EnvIdleTimeout, DefaultIdleTimeout), "Close the session after this long without traffic (0 disables)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case *active == *passive:
		return nil, ErrNoMode
	case *passive:
		c.Mode = ModePassive
	default:
		c.Mode = ModeActive
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the fields that do not depend on the name prompt.
func (c *Chat) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.Mode == ModeActive && c.Peer == "" {
		return ErrNoPeer
	}
	if c.Transport != TransportTCP && c.Transport != TransportWS {
		return fmt.Errorf("%w %q", ErrBadTransport, c.Transport)
	}
	if c.Transport == TransportWS && (c.WSPath == "" || c.WSPath[0] != '/') {
		return ErrInvalidWSPath
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("negative idle timeout %s", c.IdleTimeout)
	}
	if c.Name != "" {
		return ValidateName(c.Name)
	}
	return nil
}

// Group configures the group program.
type Group struct {
	Group     string
	Port      int
	Name      string
	Transport string
	Subject   string
	Iface     string
	Loopback  bool
	NATSURL   string
	RedisURL  string
}

// Address returns the multicast group address.
func (g *Group) Address() string {
	return net.JoinHostPort(g.Group, strconv.Itoa(g.Port))
}

// ParseGroup parses the group command line. args excludes the program name.
func ParseGroup(args []string, output io.Writer) (*Group, error) {
	fs := flag.NewFlagSet("groupchat", flag.ContinueOnError)
	fs.SetOutput(output)

	g := &Group{}
	fs.StringVar(&g.Group, "mcip", "", "Multicast group address (udp transport)")
	fs.IntVar(&g.Port, "port", getEnvAsInt(EnvPort, 0), "Multicast port (udp transport)")
	fs.StringVar(&g.Name, "name", getEnv(EnvName, ""), "Your display name (prompted when empty)")
	fs.StringVar(&g.Transport, "transport", TransportUDP, "Group transport: udp, nats or redis")
	fs.StringVar(&g.Subject, "subject", "groupchat", "NATS subject or Redis channel")
	fs.StringVar(&g.Iface, "iface", "", "Network interface to join the group on (default all)")
	fs.BoolVar(&g.Loopback, "loopback", false, "Deliver own multicast packets back to this host")
	fs.StringVar(&g.NATSURL, "nats-url", getEnv(EnvNATSURL, "nats://127.0.0.1:4222"), "NATS server URL")
	fs.StringVar(&g.RedisURL, "redis-url", getEnv(EnvRedisURL, "redis://127.0.0.1:6379/0"), "Redis server URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the fields that do not depend on the name prompt.
func (g *Group) Validate() error {
	switch g.Transport {
	case TransportUDP:
		if g.Group == "" {
			return ErrNoGroup
		}
		ip := net.ParseIP(g.Group)
		if ip == nil || !ip.IsMulticast() {
			return fmt.Errorf("%w: %s", ErrInvalidGroup, g.Group)
		}
		if err := validatePort(g.Port); err != nil {
			return err
		}
	case TransportNATS, TransportRedis:
		if g.Subject == "" {
			return ErrNoSubject
		}
	default:
		return fmt.Errorf("%w %q", ErrBadTransport, g.Transport)
	}
	if g.Name != "" {
		return ValidateName(g.Name)
	}
	return nil
}

// SuppressSelf reports whether the transport delivers a member's own
// packets back to it.
func (g *Group) SuppressSelf() bool {
	return g.Transport == TransportRedis || (g.Transport == TransportUDP && g.Loopback)
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	if name == "" || len(name) > protocol.MaxNameLength {
		return ErrInvalidName
	}
	for _, r := range name {
		if r == ' ' || r == '\t' {
			return ErrInvalidName
		}
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w %d", ErrInvalidPort, port)
	}
	return nil
}
