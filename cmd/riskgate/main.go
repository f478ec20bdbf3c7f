package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	if err := run(ctx, a, newRootCommand(a)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

// run executes the command tree and releases what init acquired on every
// exit path, including failed commands.
func run(ctx context.Context, a *app, root *cobra.Command) error {
	defer a.close(context.WithoutCancel(ctx))
	return root.ExecuteContext(ctx)
}
