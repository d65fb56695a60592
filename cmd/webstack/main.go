package main

import (
	"fmt"
	"log"
	"os"

	"github.com/oakmoss/webstack/internal/config"
)

// Build-time variables set by GoReleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "preview":
		if err := runPreview(os.Args[2:]); err != nil {
			log.Fatalf("Preview failed: %v", err)
		}
	case "up":
		if err := runUp(os.Args[2:]); err != nil {
			log.Fatalf("Up failed: %v", err)
		}
	case "destroy":
		if err := runDestroy(os.Args[2:]); err != nil {
			log.Fatalf("Destroy failed: %v", err)
		}
	case "outputs":
		if err := runOutputs(os.Args[2:]); err != nil {
			log.Fatalf("Outputs failed: %v", err)
		}
	case "verify":
		if err := runVerify(os.Args[2:]); err != nil {
			log.Fatalf("Verify failed: %v", err)
		}
	case "version":
		fmt.Printf("webstack %s (commit %s, built %s)\n", version, commit, date)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`webstack - declare and manage the web application stack

Usage:
  webstack <command> [flags]

Commands:
  preview    Plan the declaration graph against live state
  up         Apply the declaration graph
  destroy    Tear down every stack resource
  outputs    Print the resolved stack outputs
  verify     Check a provisioned environment against the declarations
  version    Print version information

Configuration is read from webstack.yaml (or WEBSTACK_CONFIG_FILE) with
WEBSTACK_* environment overrides.`)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
