package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	// --- NOUNS ---
	case "project":
		return runProjectNoun(args)
	case "config":
		return runConfigNoun(args)

	// --- VERBS ---
	case "serve":
		if hasHelpFlag(args) {
			printServeHelp()
			return 0
		}
		return runServe(args)
	case "run":
		if hasHelpFlag(args) {
			printRunHelp()
			return 0
		}
		return runRun(args)
	case "resolve":
		if hasHelpFlag(args) {
			printResolveHelp()
			return 0
		}
		return runResolve(args)
	case "runs":
		return runRuns(args)
	case "usage":
		return runUsage(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`clitask - run workspace CLI commands against workspace projects

Usage:
  clitask <command> [flags]
  clitask <noun> <action> [flags]

Commands:
  serve                      Run the long-lived session with the HTTP API
  run <cmd> [project] [-- flags]
                             Execute one command and wait for it to finish
  resolve                    Show the task a definition resolves to
  runs                       List recent task runs
  usage                      Show command usage counters

Project Actions:
  project list               List workspace projects in declaration order
  project owner <path>       Show the project containing a path
  project pick               Choose a project interactively

Config Actions:
  config check               Validate the configuration
  config show                Print the effective configuration

General:
  version                    Show version information
  help                       Show this help message

Global flags (all commands):
  --config <path>            Config file or directory (default: discovered)
  --workspace <dir>          Workspace root (overrides workspace.path)
`)
}

// --- NOUN DISPATCHERS ---

func runProjectNoun(args []string) int {
	if len(args) < 1 {
		printProjectNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printProjectNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runProjectList(actionArgs)
	case "owner":
		return runProjectOwner(actionArgs)
	case "pick":
		return runProjectPick(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown project action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "show":
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

// hasHelpFlag stops at "--": anything after it belongs to the workspace CLI.
func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printProjectNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: clitask project <list|owner|pick> [flags]")
	fmt.Fprintln(w, "Actions: list [--json], owner <path> [--json], pick")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: clitask config <check|show> [--config PATH]")
	fmt.Fprintln(w, "Actions: check, show")
}

func printServeHelp() {
	fmt.Println("Usage: clitask serve [--config PATH] [--workspace DIR] [--listen ADDR]")
	fmt.Println("Runs the session. Requires api.enabled and api.auth in config. SIGHUP reloads config.")
}

func printRunHelp() {
	fmt.Println("Usage: clitask run [--config PATH] [--workspace DIR] [--pick] <command> [project] [-- cli flags...]")
	fmt.Println("Example: clitask run generate @nrwl/angular:component -- --name=header --dry-run")
}

func printResolveHelp() {
	fmt.Println("Usage: clitask resolve --command CMD --project NAME [--flags a,b] [--config PATH]")
	fmt.Println("Prints the resolved task as JSON, or nothing (exit 0) when it does not resolve.")
}
