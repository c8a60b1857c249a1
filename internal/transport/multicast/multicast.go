// Package multicast joins a UDP multicast group for Datagram Variant
// sessions.
package multicast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"

	"github.com/omochice/duplex-chat/internal/framing"
)

// Option configures Join.
type Option func(*options)

type options struct {
	iface    string
	loopback bool
	ttl      int
}

// WithInterface joins the group on the named interface instead of the
// system default.
func WithInterface(name string) Option {
	return func(o *options) {
		o.iface = name
	}
}

// WithLoopback delivers this host's own packets back to it. It is needed to
// chat between processes on one machine.
func WithLoopback(on bool) Option {
	return func(o *options) {
		o.loopback = on
	}
}

// WithTTL sets the multicast hop limit.
func WithTTL(ttl int) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// Join binds the group port with SO_REUSEADDR, so several members can run on
// one host, and joins the group. Closing the returned connection leaves the
// group.
func Join(ctx context.Context, group string, opts ...Option) (*framing.Datagram, error) {
	o := options{ttl: 1}
	for _, opt := range opts {
		opt(&o)
	}

	host, portStr, err := net.SplitHostPort(group)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host).To4()
	if ip == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("%s is not an IPv4 multicast address", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	var ifi *net.Interface
	if o.iface != "" {
		if ifi, err = net.InterfaceByName(o.iface); err != nil {
			return nil, err
		}
	}

	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", portStr))
	if err != nil {
		return nil, fmt.Errorf("failed to bind port %d: %w", port, err)
	}

	groupAddr := &net.UDPAddr{IP: ip, Port: port}
	p := ipv4.NewPacketConn(pc)
	if err := p.JoinGroup(ifi, groupAddr); err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to join group %s: %w", groupAddr, err)
	}

	err = errors.Join(
		p.SetMulticastLoopback(o.loopback),
		p.SetMulticastTTL(o.ttl),
	)
	if err == nil && ifi != nil {
		err = p.SetMulticastInterface(ifi)
	}
	if err != nil {
		_ = p.LeaveGroup(ifi, groupAddr)
		pc.Close()
		return nil, fmt.Errorf("failed to configure group socket: %w", err)
	}

	leave := func() error {
		return p.LeaveGroup(ifi, groupAddr)
	}
	return framing.NewDatagram(pc, groupAddr, framing.OnClose(leave)), nil
}
