package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oakmoss/webstack/internal/engine"
	"github.com/oakmoss/webstack/internal/verify"
)

func runVerify(args []string) error {
	flags := flag.NewFlagSet("verify", flag.ExitOnError)
	skipDataPlane := flags.Bool("skip-data-plane", false, "Skip the table write/read/delete round trip")
	timeout := flags.Duration("timeout", 5*time.Minute, "Overall verification timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	raw, err := engine.New(cfg, os.Stderr).Outputs(ctx)
	if err != nil {
		return err
	}

	outputs, err := verify.FromMap(raw)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	checker := verify.NewChecker(awsCfg, outputs, verify.Options{
		DevOrigin:     cfg.DevOrigin,
		SkipDataPlane: *skipDataPlane,
	})

	report := checker.Run(ctx)
	printReport(report)

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(report))
	}
	fmt.Printf("\nAll %d checks passed.\n", len(report))
	return nil
}

func printReport(report verify.Report) {
	title := cases.Title(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
	for _, check := range report {
		status := "ok"
		detail := check.Detail
		if !check.OK() {
			status = "FAILED"
			detail = check.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", title.String(check.Name), status, detail)
	}
	w.Flush()
}
