package main

import (
	"fmt"
	"os"

	"github.com/rickchristie/dali/internal/meta"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "configure":
		if err := runConfigure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s %s\n", meta.Name, meta.Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("godali - SurrealDB MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  godali serve       Start the MCP server")
	fmt.Println("  godali configure   Run interactive configuration wizard")
	fmt.Println("  godali doctor      Validate config and print agent connection snippets")
	fmt.Println("  godali version     Print the version")
	fmt.Println("  godali --help      Show this help message")
}
