/*
Package main is the entry point for the slrkit CLI.

slrkit manages systematic literature reviews: research questions,
keywords, search queries, primary studies and their screening, with
language models helping to draft questions and queries.

Usage:
  slrkit [command]

Examples:
  # Start a review
  slrkit review create "Developer productivity"

  # Register a local model
  slrkit provider create ollama
  slrkit model create deepseek-r1 --provider-id 1

  # Draft research questions interactively
  slrkit question generate
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/slrkit/slrkit/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		stop()
		os.Exit(1)
	}
}
