// Command shr is the showroom CLI for scripting and maintenance.
//
// Usage:
//
//	shr                         Show help
//	shr list <endpoint> [k=v]   Fetch one listing and print its rows
//	shr warm                    Refresh configured snapshot targets
//	shr cache                   List saved snapshots
//	shr cache -prune 720h       Delete snapshots older than a duration
//	shr events                  JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `shr - showroom catalog CLI

Usage:
  shr <command> [flags] [args]

Commands:
  list      Fetch a listing and print it page by page
  warm      Refresh the configured snapshot targets
  cache     List or prune saved snapshots
  events    JSONL event log viewer

Environment:
  SHOWROOM_CATALOG_BASE_URL   Catalog API base URL
  SHOWROOM_CATALOG_TOKEN      Bearer token for /api/me endpoints
  SHOWROOM_CITY               City applied to every listing

Run 'shr <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "list":
		runList()
	case "warm":
		runWarm()
	case "cache":
		runCache()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "shr: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
