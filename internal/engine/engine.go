// Package engine submits the declaration graph to the orchestration
// engine. The engine owns planning, diffing, and applying; this package
// only drives its lifecycle over the inline program.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optdestroy"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/oakmoss/webstack/internal/config"
	"github.com/oakmoss/webstack/internal/stack"
)

// Engine drives plan, apply, and teardown for one configured stack.
type Engine struct {
	cfg *config.Config
	out io.Writer
}

func New(cfg *config.Config, out io.Writer) *Engine {
	return &Engine{cfg: cfg, out: out}
}

func (e *Engine) selectStack(ctx context.Context) (auto.Stack, error) {
	program := func(pctx *pulumi.Context) error {
		_, err := stack.Deploy(pctx, e.cfg)
		return err
	}

	s, err := auto.UpsertStackInlineSource(ctx, e.cfg.Stack, e.cfg.Project, program)
	if err != nil {
		return auto.Stack{}, fmt.Errorf("failed to select stack %s/%s: %w", e.cfg.Project, e.cfg.Stack, err)
	}

	if err := s.SetConfig(ctx, "aws:region", auto.ConfigValue{Value: e.cfg.Region}); err != nil {
		return auto.Stack{}, fmt.Errorf("failed to set region: %w", err)
	}

	return s, nil
}

// Preview plans the declaration graph against live state without applying
// it. Returns a summary of the pending changes by operation.
func (e *Engine) Preview(ctx context.Context) (map[string]int, error) {
	s, err := e.selectStack(ctx)
	if err != nil {
		return nil, err
	}

	e.logRun("preview")
	res, err := s.Preview(ctx, optpreview.ProgressStreams(e.out))
	if err != nil {
		return nil, fmt.Errorf("preview failed: %w", err)
	}

	summary := make(map[string]int, len(res.ChangeSummary))
	for op, n := range res.ChangeSummary {
		summary[string(op)] = n
	}
	return summary, nil
}

// Up applies the declaration graph and returns the resolved outputs.
func (e *Engine) Up(ctx context.Context) (map[string]string, error) {
	s, err := e.selectStack(ctx)
	if err != nil {
		return nil, err
	}

	e.logRun("up")
	res, err := s.Up(ctx, optup.ProgressStreams(e.out))
	if err != nil {
		return nil, fmt.Errorf("up failed: %w", err)
	}

	return flattenOutputs(res.Outputs), nil
}

// Destroy tears down every resource in the stack.
func (e *Engine) Destroy(ctx context.Context) error {
	s, err := e.selectStack(ctx)
	if err != nil {
		return err
	}

	e.logRun("destroy")
	if _, err := s.Destroy(ctx, optdestroy.ProgressStreams(e.out)); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}
	return nil
}

// Outputs returns the stack's resolved outputs without touching resources.
func (e *Engine) Outputs(ctx context.Context) (map[string]string, error) {
	s, err := e.selectStack(ctx)
	if err != nil {
		return nil, err
	}

	outs, err := s.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read outputs: %w", err)
	}
	return flattenOutputs(outs), nil
}

func (e *Engine) logRun(op string) {
	fmt.Fprintf(e.out, "run %s: %s %s/%s\n", uuid.NewString(), op, e.cfg.Project, e.cfg.Stack)
}

func flattenOutputs(outs auto.OutputMap) map[string]string {
	flat := make(map[string]string, len(outs))
	for name, v := range outs {
		flat[name] = fmt.Sprintf("%v", v.Value)
	}
	return flat
}
