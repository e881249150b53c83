package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/blindtest/internal/wheelctl"
	"github.com/okian/blindtest/pkg/logger"
)

func main() {
	var (
		baseURL = flag.String("url", envOr("WHEELCTL_URL", wheelctl.DefaultBaseURL), "Base URL of the service")
		timeout = flag.Duration("timeout", wheelctl.DefaultTimeout, "HTTP request timeout")
		asJSON  = flag.Bool("json", false, "Print raw JSON")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		wheelctl.ShowHelp(os.Stdout)
		return
	}

	if err := logger.InitWithFormat("text", os.Stderr); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := wheelctl.Run(ctx, &wheelctl.Config{
		BaseURL: *baseURL,
		Timeout: *timeout,
		JSON:    *asJSON,
		Out:     os.Stdout,
	}, flag.Args())
	if err != nil {
		os.Stderr.WriteString("wheelctl: " + err.Error() + "\n")
		if errors.Is(err, wheelctl.ErrUsage) || errors.Is(err, wheelctl.ErrUnknownCommand) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
