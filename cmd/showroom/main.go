// Command showroom is the terminal client for the vehicle catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/abelbrown/showroom/internal/app"
	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/config"
	"github.com/abelbrown/showroom/internal/coord"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/listing"
	"github.com/abelbrown/showroom/internal/logging"
	"github.com/abelbrown/showroom/internal/otel"
	"github.com/abelbrown/showroom/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// Version is set at build time via -ldflags
var Version = "dev"

// pairFlag collects repeated key=value flags.
type pairFlag []string

func (p *pairFlag) String() string { return strings.Join(*p, ",") }

func (p *pairFlag) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var (
		showVersion bool
		offline     bool
		warm        bool
		configPath  string
		city        string
		filters     pairFlag
	)
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&offline, "offline", false, "serve saved snapshots instead of the catalog")
	flag.BoolVar(&warm, "warm", false, "refresh configured snapshot targets in the background")
	flag.StringVar(&configPath, "config", "", "config file (default ~/.showroom/config.yaml)")
	flag.StringVar(&city, "city", "", "override the configured city")
	flag.Var(&filters, "filter", "initial Browse filter as key=value (repeatable)")
	flag.Parse()

	if showVersion {
		fmt.Printf("showroom %s\n", Version)
		return
	}

	if err := run(configPath, city, filters, offline, warm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, city string, pairs []string, offline, warm bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if city != "" {
		cfg.City = city
	}

	initial, err := filter.ParsePairs(pairs)
	if err != nil {
		return err
	}

	if err := logging.Init(cfg.DataDir, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()
	logging.Info("starting showroom", "version", Version, "offline", offline, "base_url", cfg.Catalog.BaseURL)

	rt, err := app.Open(cfg, app.Options{Offline: offline})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One controller per screen. Deep-link filters apply to Browse only.
	var tabs []ui.Tab
	var brands *listing.Controller
	for _, e := range catalog.Endpoints {
		var mount filter.State
		if e == catalog.Variants {
			mount = initial
		}
		ctrl := rt.NewController(e, mount)
		defer ctrl.Close()
		if e == catalog.Brands {
			brands = ctrl
		}
		tabs = append(tabs, ui.Tab{Title: e.Title, Controller: ctrl})
	}

	model := ui.NewApp(ui.Options{
		Tabs:   tabs,
		City:   rt.City,
		Ring:   rt.Ring,
		Logger: rt.Events,
		Brands: brands,
		Ctx:    ctx,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	var warmer *coord.Warmer
	if warm && !offline {
		warmer, err = rt.NewWarmer(func(r coord.Result) {
			program.Send(ui.WarmResult(r))
		})
		if err != nil {
			return err
		}
		warmer.Start(ctx)
	}

	// Run UI (blocks until quit)
	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	if warmer != nil {
		warmer.Wait()
	}
	if runErr != nil {
		rt.Events.Error(otel.KindError, "main", runErr)
		return fmt.Errorf("error running program: %w", runErr)
	}
	return nil
}
