package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/oakmoss/webstack/internal/engine"
	"github.com/oakmoss/webstack/internal/stack"
)

func runPreview(args []string) error {
	flags := flag.NewFlagSet("preview", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summary, err := engine.New(cfg, os.Stdout).Preview(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tCOUNT")
	ops := make([]string, 0, len(summary))
	for op := range summary {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%d\n", op, summary[op])
	}
	return w.Flush()
}

func runUp(args []string) error {
	flags := flag.NewFlagSet("up", flag.ExitOnError)
	yes := flags.Bool("yes", false, "Skip the confirmation prompt")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !*yes && !confirm(fmt.Sprintf("Apply stack %s/%s?", cfg.Project, cfg.Stack)) {
		fmt.Println("Aborted.")
		return nil
	}

	outputs, err := engine.New(cfg, os.Stdout).Up(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	return printOutputs(outputs, false)
}

func runDestroy(args []string) error {
	flags := flag.NewFlagSet("destroy", flag.ExitOnError)
	yes := flags.Bool("yes", false, "Skip the confirmation prompt")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !*yes && !confirm(fmt.Sprintf("Destroy stack %s/%s? This removes every resource.", cfg.Project, cfg.Stack)) {
		fmt.Println("Aborted.")
		return nil
	}

	return engine.New(cfg, os.Stdout).Destroy(context.Background())
}

func runOutputs(args []string) error {
	flags := flag.NewFlagSet("outputs", flag.ExitOnError)
	asJSON := flags.Bool("json", false, "Print outputs as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outputs, err := engine.New(cfg, os.Stderr).Outputs(context.Background())
	if err != nil {
		return err
	}

	return printOutputs(outputs, *asJSON)
}

func printOutputs(outputs map[string]string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OUTPUT\tVALUE")
	for _, name := range stack.OutputNames {
		if v, ok := outputs[name]; ok {
			fmt.Fprintf(w, "%s\t%s\n", name, v)
		}
	}
	return w.Flush()
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
