package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/abelbrown/showroom/internal/app"
	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/listing"
)

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	pages := fs.Int("pages", 1, "Number of windows to reveal (1 = initial window only)")
	offline := fs.Bool("offline", false, "Serve the saved snapshot instead of the catalog")
	city := fs.String("city", "", "Override the configured city")
	rawJSON := fs.Bool("json", false, "Print visible records as JSON lines")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: shr list [flags] <endpoint> [key=value...]")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}
	e, err := catalog.LookupEndpoint(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	filters, err := filter.ParsePairs(fs.Args()[1:])
	if err != nil {
		fatalf("%v", err)
	}

	cfg := loadConfig()
	if *city != "" {
		cfg.City = *city
	}
	rt := openRuntime(cfg, app.Options{Offline: *offline})
	code := list(rt, e, filters, *pages, *rawJSON)
	// Close flushes the event log; os.Exit would skip deferred calls.
	rt.Close()
	os.Exit(code)
}

// list fetches one listing, reveals up to pages windows and prints them. It
// returns the process exit code. The controller is closed before returning.
func list(rt *app.Runtime, e catalog.Endpoint, filters filter.State, pages int, rawJSON bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl := rt.NewController(e, filters)
	defer ctrl.Close()
	events := ctrl.Subscribe()

	ctrl.Mount()
	ctrl.Wait()
	p := ctrl.CurrentState()

	for page := 1; page < pages && p.HasMore; page++ {
		want := p.Visible
		if !ctrl.OnNearEndOfList() {
			break
		}
		p = waitForReveal(ctx, events, ctrl, want)
	}

	printPresentation(p, rawJSON)
	if p.Err != nil {
		return 1
	}
	return 0
}

// waitForReveal blocks until the controller reveals more than visible rows,
// or the wait times out.
func waitForReveal(ctx context.Context, events <-chan listing.Event, ctrl *listing.Controller, visible int) listing.Presentation {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case <-events:
			p := ctrl.CurrentState()
			if p.State == listing.Populated && p.Visible > visible {
				return p
			}
		case <-timeout:
			return ctrl.CurrentState()
		case <-ctx.Done():
			return ctrl.CurrentState()
		}
	}
}

func printPresentation(p listing.Presentation, rawJSON bool) {
	if p.Err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", p.Err)
	}

	switch p.State {
	case listing.EmptyNoFilters:
		fmt.Println("No records.")
		return
	case listing.EmptyNoResults:
		fmt.Printf("No records match %s.\n", p.Filters)
		return
	case listing.Loading:
		fmt.Println("Still loading.")
		return
	}

	enc := json.NewEncoder(os.Stdout)
	for _, it := range p.Items {
		if rawJSON {
			enc.Encode(it.Payload)
			continue
		}
		fmt.Printf("%-24s  %s\n", truncate(it.Key, 24), truncate(it.Payload.DisplayName(), 60))
	}
	if !rawJSON {
		fmt.Printf("\nShowing %d of %d", p.Visible, p.Total)
		if q := p.Filters.String(); q != "" {
			fmt.Printf(" (%s)", q)
		}
		fmt.Println()
	}
}
