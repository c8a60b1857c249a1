package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/config"
	"github.com/omochice/duplex-chat/internal/console"
	"github.com/omochice/duplex-chat/internal/logger"
	"github.com/omochice/duplex-chat/internal/transport/multicast"
	"github.com/omochice/duplex-chat/internal/transport/natsbus"
	"github.com/omochice/duplex-chat/internal/transport/redisbus"
	"github.com/omochice/duplex-chat/pkg/protocol"
)

func main() {
	cfg, err := config.ParseGroup(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid arguments: %v\n\nUsage: groupchat -mcip GROUP -port PORT [-name NAME]", err)
	}

	if cfg.Name == "" {
		if cfg.Name, err = config.PromptName(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("Failed to read name: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Group chat error: %v", err)
	}
}

func join(ctx context.Context, cfg *config.Group) (chat.Conn, error) {
	switch cfg.Transport {
	case config.TransportUDP:
		return nilIfErr(multicast.Join(ctx, cfg.Address(),
			multicast.WithInterface(cfg.Iface),
			multicast.WithLoopback(cfg.Loopback),
		))
	case config.TransportNATS:
		return nilIfErr(natsbus.Join(cfg.NATSURL, cfg.Subject))
	case config.TransportRedis:
		return nilIfErr(redisbus.Join(ctx, cfg.RedisURL, cfg.Subject))
	default:
		return nil, fmt.Errorf("%w %q", config.ErrBadTransport, cfg.Transport)
	}
}

// nilIfErr keeps a failed constructor's typed nil out of the interface.
func nilIfErr[C chat.Conn](c C, err error) (chat.Conn, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

func run(ctx context.Context, cfg *config.Group) error {
	lg := logger.GetLogger("groupchat")

	conn, err := join(ctx, cfg)
	if err != nil {
		return err
	}
	lg.V(1).Info("joined group", "transport", cfg.Transport, "remote", conn.RemoteAddr())

	con, err := console.Open(os.Stdin, os.Stdout, lg)
	if err != nil {
		conn.Close()
		return err
	}
	defer con.Close()

	_, err = con.Run(ctx, conn, console.Session{
		Variant:      protocol.VariantDatagram,
		LocalName:    cfg.Name,
		SuppressSelf: cfg.SuppressSelf(),
	})
	return err
}
