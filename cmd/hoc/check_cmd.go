package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/manifest"
	"github.com/Mindburn-Labs/hoc/pkg/notation"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
)

type checkReport struct {
	Manifest   string           `json:"manifest"`
	Version    string           `json:"version"`
	Predicates []string         `json:"predicates"`
	Contracts  []namedContract  `json:"contracts"`
	Procedures []procedureEntry `json:"procedures"`
}

type namedContract struct {
	Name     string `json:"name"`
	Contract string `json:"contract"`
}

type procedureEntry struct {
	Name     string `json:"name"`
	Arity    int    `json:"arity"`
	Contract string `json:"contract,omitempty"`
}

// loadBundle loads, validates and builds a manifest. WASM predicates get
// a per-test timeout so a runaway module cannot hang the command.
func loadBundle(ctx context.Context, path string) (*manifest.Manifest, *manifest.Bundle, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := m.Build(ctx, manifest.BuildOptions{
		WASM: predicates.WASMConfig{MemoryLimitPages: 16, Timeout: 2 * time.Second},
	})
	if err != nil {
		return nil, nil, err
	}
	return m, b, nil
}

// runCheckCmd implements `hoc check`.
//
// Exit codes:
//
//	0 = manifest is valid
//	1 = manifest is invalid
//	2 = runtime error
func runCheckCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("check", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		manifestPath string
		jsonOutput   bool
	)
	cmd.StringVar(&manifestPath, "manifest", "", "Path to a contract manifest (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if manifestPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --manifest is required")
		return 2
	}

	ctx := context.Background()
	m, b, err := loadBundle(ctx, manifestPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer func() { _ = b.Close(ctx) }()

	report := checkReport{Manifest: manifestPath, Version: m.Version}
	for _, p := range m.Predicates {
		report.Predicates = append(report.Predicates, p.Name)
	}
	for _, name := range b.ContractNames() {
		c, _ := b.Contract(name)
		report.Contracts = append(report.Contracts, namedContract{Name: name, Contract: notation.Print(c)})
	}
	for _, p := range m.Procedures {
		report.Procedures = append(report.Procedures, procedureEntry{Name: p.Name, Arity: p.Arity, Contract: p.Contract})
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "✅ %s (version %s)\n", manifestPath, m.Version)
	printSection(stdout, "PREDICATES")
	for _, name := range report.Predicates {
		_, _ = fmt.Fprintf(stdout, "  %s\n", name)
	}
	printSection(stdout, "CONTRACTS")
	for _, c := range report.Contracts {
		printCommand(stdout, c.Name, c.Contract)
	}
	printSection(stdout, "PROCEDURES")
	for _, p := range report.Procedures {
		desc := fmt.Sprintf("arity %d", p.Arity)
		if p.Contract != "" {
			desc += ", provided under " + p.Contract
		}
		printCommand(stdout, p.Name, desc)
	}
	return 0
}
