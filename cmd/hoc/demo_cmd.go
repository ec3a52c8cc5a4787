package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/notation"
	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// scenario is one reference application and the outcome it must have.
type scenario struct {
	title     string
	contract  string
	proc      value.Procedure
	args      []any
	wantBlame bool
}

type scenarioResult struct {
	Title    string             `json:"title"`
	Contract string             `json:"contract"`
	Args     string             `json:"args"`
	Result   string             `json:"result,omitempty"`
	Blame    *contract.Snapshot `json:"blame,omitempty"`
	Report   string             `json:"-"`
	OK       bool               `json:"ok"`
}

var (
	demoLib    = srcloc.At("lib.hoc", 1, 1).WithLabel("lib")
	demoClient = srcloc.At("client.hoc", 7, 3).WithLabel("client")
)

func demoScenarios() []scenario {
	add := value.Lambda2("add", func(x, y any) (any, error) { return value.Add(x, y) })
	sloppy := value.Lambda2("sloppy-add", func(x, y any) (any, error) { return value.Add(x, y, 0.1) })
	applyPlusOne := value.Lambda2("apply-plus-one", func(g, x any) (any, error) {
		r, err := value.Call(context.Background(), g, x)
		if err != nil {
			return nil, err
		}
		return value.Add(r, 1)
	})
	inc := func(n int) value.Procedure {
		return value.Lambda1(fmt.Sprintf("plus-%d", n), func(x any) (any, error) { return value.Add(x, n) })
	}

	const intBinop = "(-> integer? integer? integer?)"
	const applyEven = "(->/c (->/c even? odd?) even? even?)"
	return []scenario{
		{title: "well-typed call", contract: intBinop, proc: add, args: []any{10, 11}},
		{title: "bad argument", contract: intBinop, proc: add, args: []any{10.1, 11}, wantBlame: true},
		{title: "bad result", contract: intBinop, proc: sloppy, args: []any{10, 20}, wantBlame: true},
		{title: "higher-order, odd result", contract: applyEven, proc: applyPlusOne, args: []any{inc(1), 2}},
		{title: "higher-order, even result", contract: applyEven, proc: applyPlusOne, args: []any{inc(2), 2}, wantBlame: true},
	}
}

// runDemoCmd implements `hoc demo`.
//
// Exit codes:
//
//	0 = every scenario produced its expected outcome
//	1 = some scenario did not
//	2 = runtime error
func runDemoCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("demo", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = subs.Close(ctx) }()

	var results []scenarioResult
	for _, sc := range demoScenarios() {
		res, err := runScenario(ctx, sc, subs.options())
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %s: %v\n", sc.title, err)
			return 2
		}
		results = append(results, res)
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(results, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		for i, r := range results {
			mark := ColorGreen + "ok" + ColorReset
			if !r.OK {
				mark = ColorRed + "UNEXPECTED" + ColorReset
			}
			_, _ = fmt.Fprintf(stdout, "%s[%d] %s%s %s\n", ColorBold, i+1, r.Title, ColorReset, mark)
			_, _ = fmt.Fprintf(stdout, "    %s applied to %s\n", r.Contract, r.Args)
			if r.Blame == nil {
				_, _ = fmt.Fprintf(stdout, "    => %s\n\n", r.Result)
				continue
			}
			_, _ = fmt.Fprintln(stdout, indent(r.Report, "    "))
		}
		_, _ = fmt.Fprintf(stdout, "%d scenarios, %d unexpected, %d applications recorded\n",
			len(results), failed, subs.history.Len())
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func runScenario(ctx context.Context, sc scenario, opts []contract.Option) (scenarioResult, error) {
	c, err := notation.Parse(sc.contract)
	if err != nil {
		return scenarioResult{}, err
	}
	fn, ok := c.(*contract.Function)
	if !ok {
		return scenarioResult{}, fmt.Errorf("%s is not a function contract", sc.contract)
	}
	opts = append([]contract.Option{contract.WithDefinitionSite(demoLib)}, opts...)
	w, err := contract.Wrap(sc.proc, fn, opts...)
	if err != nil {
		return scenarioResult{}, err
	}

	res := scenarioResult{Title: sc.title, Contract: fn.String(), Args: value.Format(sc.args)}
	out, err := w.Call(ctx, demoClient, sc.args...)
	if b, isBlame := contract.BlameOf(err); isBlame {
		snap := b.Snapshot()
		res.Blame = &snap
		res.Report = b.Report()
		res.OK = sc.wantBlame
		return res, nil
	}
	if err != nil {
		return scenarioResult{}, err
	}
	res.Result = value.Format(out)
	res.OK = !sc.wantBlame
	return res, nil
}

func indent(s, prefix string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}
