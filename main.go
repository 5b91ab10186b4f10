// xm2m - a network transaction server with an operator console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"xm2m/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "xm2m: %v\n", err)
		os.Exit(1)
	}
}
