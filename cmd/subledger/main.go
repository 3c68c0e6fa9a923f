package main

import (
	"fmt"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"add":    runAdd,
	"list":   runList,
	"view":   runView,
	"update": runUpdate,
	"delete": runDelete,
	"report": runReport,
	"import": runImport,
	"export": runExport,
	"cancel": runCancel,
	"renew":  runRenew,
	"quota":  runQuota,
	"tiers":  runTiers,
}

func usage() {
	fmt.Fprintf(os.Stderr, `subledger - subscription ledger CLI (version %s)

Usage:
  subledger <command> [options] [args]

Commands:
  add      Enroll a new customer
  list     List all customers
  view     Show one customer
  update   Change a customer's details (admin)
  delete   Remove a customer (admin)
  report   Summarize customers and revenue (admin)
  import   Replace all customers from a spreadsheet (admin)
  export   Write all customers to a spreadsheet (admin)
  cancel   Cancel a subscription or a cash payment
  renew    Advance a renewal date by one period
  quota    Show this month's enrollment quotas
  tiers    Show subscription tiers and prices

Every ledger command accepts --config, --env, --role, --audit and --metrics.
Run 'subledger <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd) //nolint:gosec // CLI error output
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err) //nolint:gosec // CLI error output
		os.Exit(1)
	}
}
