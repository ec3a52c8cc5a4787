package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

type applyResult struct {
	Procedure string             `json:"procedure"`
	Contract  string             `json:"contract"`
	Result    string             `json:"result,omitempty"`
	Blame     *contract.Snapshot `json:"blame,omitempty"`
}

// runApplyCmd implements `hoc apply`.
//
// Wraps a manifest procedure in a contract and applies it once to the
// JSON array given by --args. Violations are reported and journaled.
//
// Exit codes:
//
//	0 = the application satisfied its contract
//	1 = contract violation
//	2 = runtime error
func runApplyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("apply", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		manifestPath string
		procName     string
		contractName string
		rawArgs      string
		callSite     string
		jsonOutput   bool
	)
	cmd.StringVar(&manifestPath, "manifest", "", "Path to a contract manifest (REQUIRED)")
	cmd.StringVar(&procName, "proc", "", "Procedure to apply (REQUIRED)")
	cmd.StringVar(&contractName, "contract", "", "Contract name or notation (default: the procedure's declared contract)")
	cmd.StringVar(&rawArgs, "args", "[]", "Arguments as a JSON array")
	cmd.StringVar(&callSite, "at", "command line", "Label of the calling party in blame reports")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if manifestPath == "" || procName == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --manifest and --proc are required")
		return 2
	}
	argv, err := decodeArgs(rawArgs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: --args: %v\n", err)
		return 2
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = subs.Close(ctx) }()

	_, b, err := loadBundle(ctx, manifestPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = b.Close(ctx) }()

	w, err := b.Provide(procName, contractName, subs.options()...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	res := applyResult{Procedure: w.Name(), Contract: w.Contract().String()}
	out, err := w.Call(ctx, srcloc.Named(callSite), argv...)
	blame, violated := contract.BlameOf(err)
	switch {
	case violated:
		snap := blame.Snapshot()
		res.Blame = &snap
	case err != nil:
		subs.logger.ErrorContext(ctx, "application aborted", "procedure", procName, "error", err)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	default:
		res.Result = value.Format(out)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(res, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if violated {
		_, _ = fmt.Fprint(stdout, blame.Report())
	} else {
		_, _ = fmt.Fprintln(stdout, res.Result)
	}

	if violated {
		return 1
	}
	return 0
}

// decodeArgs parses a JSON array. Integral numbers become int64 so that
// integer? holds for them; other numbers become float64.
func decodeArgs(raw string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after the JSON array")
	}
	for i, a := range args {
		args[i] = normalize(a)
	}
	return args, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	}
	return v
}
