package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"portfolio-api/internal/blog"
	"portfolio-api/internal/config"
	"portfolio-api/internal/gateway"
	"portfolio-api/internal/mailer"
	"portfolio-api/internal/server"
	"portfolio-api/internal/store"
)

const serveUsage = `Usage:
  portfolio-api serve --config <path> [--port <port>]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if cfgPath == "" {
		return errors.New("serve command requires --config <path>")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	library, err := blog.Load(cfg.Blog.Dir)
	if err != nil {
		return err
	}
	slog.Info("blog posts loaded", "dir", cfg.Blog.Dir, "count", library.Len())

	attempter := gateway.NewOpenRouter(cfg.Chat, gateway.NewHTTPClient(cfg.Chat.AttemptTimeout()))
	gw := gateway.New(attempter, cfg.Chat.Models, cfg.Chat.SystemPrompt)

	mail := mailer.New(cfg.Mail)
	if !mail.Enabled() {
		slog.Warn("mail delivery not configured, confirmation emails will be skipped")
	}

	srv, err := server.New(cfg, gw, st, library, mail)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
