// cmd/preflight/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/webwatch/webwatch/internal/archive"
	"github.com/webwatch/webwatch/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file (optional)")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	}
	ok("config valid, addr=" + cfg.Addr)

	if len(cfg.AdminAPIKeys) == 0 {
		warn("no admin api keys configured; mutating routes are open")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no api keys configured at all; every route is open")
	}
	for _, set := range [][]string{cfg.PublicAPIKeys, cfg.AdminAPIKeys} {
		for _, k := range set {
			if strings.ContainsAny(k, " \t") {
				warn("api key contains whitespace; use comma-separated keys with no spaces, e.g. key1,key2")
			}
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("allowed_origins empty; CORS falls back to allow-all")
	}
	if cfg.Watch.Enabled && len(cfg.Watch.Targets) == 0 {
		warn("watch enabled with no targets; the watcher will idle")
	}

	if cfg.Archive.Driver == "" {
		warn("no archive driver; state will not survive restarts")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			fail("archive unreachable: " + err.Error())
		}
		st.Close()
		ok("archive reachable, driver=" + cfg.Archive.Driver)
	}

	ok("preflight passed")
}
