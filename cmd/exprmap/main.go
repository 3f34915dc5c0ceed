// Command exprmap inspects and runs the projection rules of the demo
// catalog:
//
//	exprmap pairs
//	exprmap explain catalog.Order catalog.OrderDTO --role admin
//	exprmap run catalog.Person catalog.PersonDTO --db people.db --format yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"exprmap/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
