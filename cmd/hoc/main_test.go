package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/hoc/pkg/journal"
)

const arithManifest = "../../pkg/manifest/testdata/arith.yaml"

// cleanEnv isolates a test from HOC_* settings in the caller's shell.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HOC_LOG_LEVEL", "HOC_JOURNAL_DRIVER", "HOC_JOURNAL_DSN",
		"HOC_OTEL_ENABLED", "HOC_OTLP_ENDPOINT", "HOC_OTEL_INSECURE",
		"HOC_HISTORY", "HOC_LOG_RATE",
	} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"hoc"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Dispatch(t *testing.T) {
	cleanEnv(t)

	code, _, stderr := run(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: ")

	code, stdout, _ := run(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "journal")

	code, stdout, _ = run(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "hoc dev\n", stdout)

	code, _, stderr = run(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestDemo(t *testing.T) {
	cleanEnv(t)

	code, stdout, _ := run(t, "demo")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "5 scenarios, 0 unexpected")
	assert.Contains(t, stdout, "=> 21")
	assert.Contains(t, stdout, "=> 4")
	assert.Contains(t, stdout, "produced: 30.1")
	assert.Contains(t, stdout, "blaming: definition site lib (lib.hoc:1:1)")
	assert.Contains(t, stdout, "given: 10.1")
	assert.Contains(t, stdout, "blaming: call site client (client.hoc:7:3)")
}

func TestDemo_JSON(t *testing.T) {
	cleanEnv(t)

	code, stdout, _ := run(t, "demo", "--json")
	require.Equal(t, 0, code)

	var results []scenarioResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.OK, r.Title)
	}

	assert.Nil(t, results[0].Blame)
	assert.Equal(t, "21", results[0].Result)

	require.NotNil(t, results[1].Blame)
	assert.Equal(t, "call site", results[1].Blame.Culprit)
	assert.Equal(t, "the 1st argument", results[1].Blame.Position)

	require.NotNil(t, results[2].Blame)
	assert.Equal(t, "definition site", results[2].Blame.Culprit)
	assert.Equal(t, "the range", results[2].Blame.Position)

	// The argument procedure broke odd?, so its supplier is blamed.
	require.NotNil(t, results[4].Blame)
	assert.Equal(t, "odd?", results[4].Blame.Expected)
	assert.Equal(t, "call site", results[4].Blame.Culprit)
	assert.True(t, results[4].Blame.Inverted)
}

func TestCheck(t *testing.T) {
	cleanEnv(t)

	code, stdout, stderr := run(t, "check", "--manifest", arithManifest)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "version 1.2.0")
	assert.Contains(t, stdout, "(-> integer? integer? integer?)")
	assert.Contains(t, stdout, "provided under int-binop")

	code, stdout, _ = run(t, "check", "--manifest", arithManifest, "--json")
	require.Equal(t, 0, code)
	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "1.2.0", report.Version)
	assert.Equal(t, []string{"pos?", "point?", "small?", "wasm-even?"}, report.Predicates)
	require.Len(t, report.Contracts, 4)
	assert.Equal(t, "int-binop", report.Contracts[0].Name)
	assert.Len(t, report.Procedures, 4)
}

func TestCheck_Errors(t *testing.T) {
	cleanEnv(t)

	code, _, stderr := run(t, "check")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--manifest is required")

	code, _, _ = run(t, "check", "--manifest", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
}

func TestApply(t *testing.T) {
	cleanEnv(t)

	code, stdout, stderr := run(t, "apply", "--manifest", arithManifest, "--proc", "add", "--args", "[10, 11]")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "21\n", stdout)

	code, stdout, _ = run(t, "apply", "--manifest", arithManifest, "--proc", "add", "--args", "[10.1, 11]")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "add: contract violation")
	assert.Contains(t, stdout, "blaming: call site command line")

	code, stdout, _ = run(t, "apply", "--manifest", arithManifest, "--proc", "sloppy-add", "--args", "[10, 20]")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "sloppy-add: broke its own contract")
	assert.Contains(t, stdout, "blaming: definition site sloppy-add")

	code, stdout, _ = run(t, "apply", "--manifest", arithManifest, "--proc", "add",
		"--contract", "(-> integer? integer? pos?)", "--args", "[-5, 1]", "--json")
	assert.Equal(t, 1, code)
	var res applyResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.NotNil(t, res.Blame)
	assert.Equal(t, "pos?", res.Blame.Expected)
	assert.Equal(t, "-4", res.Blame.Actual)
}

func TestApply_Errors(t *testing.T) {
	cleanEnv(t)

	code, _, _ := run(t, "apply", "--manifest", arithManifest)
	assert.Equal(t, 2, code)

	code, _, stderr := run(t, "apply", "--manifest", arithManifest, "--proc", "add", "--args", "{}")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--args")

	code, _, stderr = run(t, "apply", "--manifest", arithManifest, "--proc", "nope", "--args", "[]")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown procedure "nope"`)
}

func TestApply_JournalsViolations(t *testing.T) {
	cleanEnv(t)
	dsn := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("HOC_JOURNAL_DRIVER", "sqlite")
	t.Setenv("HOC_JOURNAL_DSN", dsn)

	for _, args := range []string{"[10.1, 1]", "[10.5, 2]"} {
		code, _, _ := run(t, "apply", "--manifest", arithManifest, "--proc", "add", "--args", args)
		require.Equal(t, 1, code)
	}

	code, stdout, stderr := run(t, "journal", "--json")
	require.Equal(t, 0, code, stderr)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Count)
	assert.Equal(t, "add", entries[0].Subject)
	assert.Equal(t, "10.5", entries[0].Actual)

	code, stdout, _ = run(t, "journal", "--dsn", dsn)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "SUBJECT")
	assert.Contains(t, stdout, "integer?")
}

func TestJournal_RequiresDSN(t *testing.T) {
	cleanEnv(t)

	code, _, stderr := run(t, "journal")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--dsn is required")
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs(`[1, 2.5, "x", [3], {"k": 4}, null, true]`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), 2.5, "x", []any{int64(3)}, map[string]any{"k": int64(4)}, nil, true}, args)

	_, err = decodeArgs(`[1] [2]`)
	assert.Error(t, err)
	_, err = decodeArgs(`7`)
	assert.Error(t, err)
}
