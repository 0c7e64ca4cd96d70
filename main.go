// wsmux opens several WebSocket sessions and drives them from one
// console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wsmux/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wsmux: %v\n", err)
		os.Exit(1)
	}
}
