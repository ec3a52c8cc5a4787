package main

import (
	"fmt"
	"io"
	"os"

	_ "github.com/lib/pq"  // Postgres Driver
	_ "modernc.org/sqlite" // SQLite Driver
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "demo":
		return runDemoCmd(args[2:], stdout, stderr)
	case "check":
		return runCheckCmd(args[2:], stdout, stderr)
	case "apply":
		return runApplyCmd(args[2:], stdout, stderr)
	case "journal":
		return runJournalCmd(args[2:], stdout, stderr)
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "hoc %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorRed   = "\033[31m"
	ColorGreen = "\033[32m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[90m"
)

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%sHOC%s - higher-order contracts with blame\n\n", ColorBold, ColorReset)
	_, _ = fmt.Fprintf(w, "Usage: %shoc <command> [flags]%s\n\n", ColorGray, ColorReset)

	printSection(w, "CONTRACTS")
	printCommand(w, "check", "Load a manifest and print its contracts")
	printCommand(w, "apply", "Apply a manifest procedure under a contract")
	printCommand(w, "demo", "Run the reference blame scenarios")

	printSection(w, "JOURNAL")
	printCommand(w, "journal", "List recorded violations")

	printSection(w, "UTILITIES")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sEnvironment: HOC_LOG_LEVEL, HOC_JOURNAL_DRIVER, HOC_JOURNAL_DSN, HOC_OTEL_ENABLED, HOC_OTLP_ENDPOINT%s\n", ColorGray, ColorReset)
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %s%-12s%s %s\n", ColorGreen, name, ColorReset, desc)
}
