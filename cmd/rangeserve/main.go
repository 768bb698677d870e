package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess             = 0
	ExitGeneralError        = 1
	ExitInvalidArgs         = 2
	ExitSourceNotAccess     = 3
	ExitRangeNotSupported   = 4
	ExitStorageError        = 5
	ExitRangeNotSatisfiable = 6
	ExitSourceChanged       = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "serve":
		return runServe(cmdArgs)
	case "fetch":
		return runFetch(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: rangeserve <command> [options]

Commands:
  serve  Serve files from a directory or bucket with HTTP range support
  fetch  Download a file, or byte ranges of it, from a range server

Run 'rangeserve <command> -h' for command-specific help.`)
}
