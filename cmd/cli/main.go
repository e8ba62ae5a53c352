package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/webwatch/webwatch/internal/checker"
	"github.com/webwatch/webwatch/internal/validate"
)

func main() {
	var (
		timeout   = flag.Duration("timeout", 10*time.Second, "per-request timeout")
		redirects = flag.Int("redirects", 5, "redirect limit per probe")
		insecure  = flag.Bool("insecure", false, "skip TLS verification on probes")
		workers   = flag.Int("workers", 10, "max concurrent probes")
		asJSON    = flag.Bool("json", false, "print results as a JSON document")
		exportTo  = flag.String("export", "", "also write the state document to this file")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: webwatch [flags] URL [URL ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	targets := make([]string, 0, flag.NArg())
	for _, raw := range flag.Args() {
		t := validate.Normalize(strings.TrimSpace(raw))
		if !validate.IsValidURL(t) {
			fmt.Fprintf(os.Stderr, "invalid url: %s\n", raw)
			os.Exit(2)
		}
		targets = append(targets, t)
	}

	chk := checker.New(checker.Options{
		Timeout:            *timeout,
		MaxRedirects:       *redirects,
		InsecureSkipVerify: *insecure,
		MaxConcurrent:      *workers,
	})
	results := chk.BulkCheck(context.Background(), targets)

	urls := make([]string, 0, len(results))
	failed := false
	for url, out := range results {
		urls = append(urls, url)
		if !out.Up() {
			failed = true
		}
	}
	sort.Strings(urls)

	if *asJSON {
		doc := make(map[string]any, len(urls))
		for _, url := range urls {
			doc[url] = map[string]any{
				"result":       results[url],
				"stats":        chk.Statistics(url),
				"health_score": chk.HealthScore(url),
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintln(os.Stderr, "encode:", err)
			os.Exit(1)
		}
	} else {
		for _, url := range urls {
			out := results[url]
			switch {
			case out.Failed():
				fmt.Printf("✖ %-42s %s\n", url, out.Error)
			case out.Up():
				fmt.Printf("✔ %-42s status=%d time=%.1fms score=%.1f\n",
					url, out.StatusCode, out.ResponseTimeMs, chk.HealthScore(url))
			default:
				fmt.Printf("⚠ %-42s status=%d time=%.1fms score=%.1f\n",
					url, out.StatusCode, out.ResponseTimeMs, chk.HealthScore(url))
			}
		}
	}

	if *exportTo != "" {
		f, err := os.Create(*exportTo)
		if err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(1)
		}
		if err := chk.Export(f); err != nil {
			f.Close()
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(1)
		}
	}

	if failed {
		os.Exit(1)
	}
}
