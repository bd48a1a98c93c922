// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hamed0406/sitemonitor/internal/alert"
	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/registry"
	"github.com/hamed0406/sitemonitor/internal/repo/backend"
	"github.com/hamed0406/sitemonitor/internal/scheduler"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(".env")
	if err != nil {
		fail(err.Error())
	}
	ok("configuration valid")

	reg, err := registry.Load(cfg.Paths.Registry)
	if err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("registry %s: %d targets", cfg.Paths.Registry, len(reg.Targets)))
	if reg.Skipped > 0 {
		warn(fmt.Sprintf("registry has %d lines without a url|name pair; they will be ignored", reg.Skipped))
	}

	if _, err := alert.ParsePolicy(cfg.Alerting.Policy); err != nil {
		fail(err.Error())
	}
	if cfg.Schedule != "" {
		if err := scheduler.Validate(cfg.Schedule); err != nil {
			fail(err.Error())
		}
		ok("SCHEDULE=" + cfg.Schedule)
	}

	if cfg.Store.Driver == "file" {
		dir := filepath.Dir(cfg.Paths.Data)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			fail("data directory " + dir + " does not exist")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		fail("history store: " + err.Error())
	}
	hist, err := store.Load(ctx)
	store.Close()
	if err != nil {
		fail("history store: " + err.Error())
	}
	ok(fmt.Sprintf("history store (%s): %d targets, %d checks", cfg.Store.Driver, len(hist), hist.NumChecks()))

	n := cfg.Notify
	switch {
	case n.TelegramEnabled(), n.SlackWebhook != "", n.WebhookURL != "", n.MailEnabled(), n.TopicURL != "":
		ok("notifications configured")
	case n.TelegramToken != "" || n.TelegramChatID != "":
		warn("TELEGRAM_TOKEN and TELEGRAM_CHATID must both be set; alerts will only be logged")
	default:
		warn("no notifier configured; alerts will only be logged")
	}

	ok("preflight passed")
}
