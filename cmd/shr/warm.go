package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/abelbrown/showroom/internal/app"
	"github.com/abelbrown/showroom/internal/coord"
)

func runWarm() {
	fs := flag.NewFlagSet("warm", flag.ExitOnError)
	loop := fs.Bool("loop", false, "Keep warming every warm.interval until interrupted")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if len(cfg.Warm.Targets) == 0 {
		fatalf("no warm.targets configured")
	}
	if *loop && cfg.Warm.Interval <= 0 {
		fatalf("-loop needs warm.interval > 0")
	}

	rt := openRuntime(cfg, app.Options{})
	code := warm(rt, *loop)
	rt.Close()
	os.Exit(code)
}

// warm runs the warmer and returns the process exit code.
func warm(rt *app.Runtime, loop bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// OnResult runs on worker goroutines.
	var mu sync.Mutex
	failed := 0
	report := func(r coord.Result) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL  %-40s  %v\n", r.Target, r.Err)
			return
		}
		fmt.Printf("ok    %-40s  %4d records  %s\n", r.Target, r.Count, r.Dur.Round(time.Millisecond))
	}

	if loop {
		w, err := rt.NewWarmer(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		w.Start(ctx)
		w.Wait()
		return 0
	}

	w, err := rt.NewWarmer(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	for _, r := range w.WarmOnce(ctx) {
		report(r)
	}
	if failed > 0 {
		return 1
	}
	return 0
}
