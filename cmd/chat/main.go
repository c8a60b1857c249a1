package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/client"
	"github.com/omochice/duplex-chat/internal/config"
	"github.com/omochice/duplex-chat/internal/console"
	"github.com/omochice/duplex-chat/internal/framing"
	"github.com/omochice/duplex-chat/internal/logger"
	"github.com/omochice/duplex-chat/internal/server"
	"github.com/omochice/duplex-chat/pkg/protocol"
)

func main() {
	cfg, err := config.ParseChat(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid arguments: %v\n\nUsage: chat (-active -peer HOST | -passive) -port PORT [-name NAME]", err)
	}

	if cfg.Name == "" {
		if cfg.Name, err = config.PromptName(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("Failed to read name: %v", err)
		}
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Chat error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Chat) error {
	lg := logger.GetLogger("chat")

	con, err := console.Open(os.Stdin, os.Stdout, lg)
	if err != nil {
		return err
	}
	defer con.Close()

	session := console.Session{Variant: protocol.VariantStream, LocalName: cfg.Name}
	streamOpts := []framing.Option{framing.WithIdleTimeout(cfg.IdleTimeout)}

	if cfg.Mode == config.ModeActive {
		conn, err := client.Dial(ctx, cfg, streamOpts...)
		if err != nil {
			return err
		}
		_, err = con.Run(ctx, conn, session)
		return err
	}

	srv := server.New(cfg.Address(), server.WithLogger(lg), server.WithStreamOptions(streamOpts...))
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()
	lg.Info("listening", "addr", srv.Addr())

	// Serve peers one after another until the local user leaves.
	for {
		con.Display.Notice("Waiting for new connection...")
		conn, err := srv.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		reason, err := con.Run(ctx, conn, session)
		if err != nil {
			lg.Error(err, "session failed", "remote", conn.RemoteAddr())
		}
		if reason == chat.ReasonLocalInterrupt {
			return nil
		}
	}
}
