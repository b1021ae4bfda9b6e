package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/askora/askora/internal/cli/askoractl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("ASKORA_CLI_TIMEOUT")), 90*time.Second)
	options := askoractl.Options{
		BaseURL:    envOr("ASKORA_API_URL", "http://localhost:8080"),
		APIKey:     strings.TrimSpace(os.Getenv("ASKORA_API_KEY")),
		DBPassword: os.Getenv("ASKORA_DB_PASSWORD"),
		Timeout:    timeout,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := askoractl.Run(ctx, os.Args[1:], options)
	stop()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid ASKORA_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
