package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/showroom/internal/app"
)

func runCache() {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	prune := fs.Duration("prune", 0, "Delete snapshots older than this age (e.g. 720h)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	rt := openRuntime(cfg, app.Options{NoEvents: true})
	defer rt.Close()

	if *prune > 0 {
		n, err := rt.Store.Prune(time.Now().Add(-*prune))
		if err != nil {
			fatalf("prune: %v", err)
		}
		fmt.Printf("Pruned %d snapshots older than %s\n", n, *prune)
	}

	infos, err := rt.Store.ListSnapshots()
	if err != nil {
		fatalf("list snapshots: %v", err)
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots.")
		return
	}

	fmt.Printf("%-10s  %-40s  %6s  %s\n", "ENDPOINT", "FILTERS", "COUNT", "FETCHED")
	for _, s := range infos {
		key := s.FilterKey
		if key == "" {
			key = "(none)"
		}
		fmt.Printf("%-10s  %-40s  %6d  %s\n", s.Endpoint, truncate(key, 40), s.Count, s.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d snapshots in %s\n", len(infos), cfg.DBPath())
}
