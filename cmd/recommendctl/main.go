// Command recommendctl runs maintenance operations against the recommend
// database outside the API process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/recommend-backend/internal/app"
)

var rootCtx context.Context

var rootCmd = &cobra.Command{
	Use:           "recommendctl",
	Short:         "Maintenance commands for the recommend service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx

	rootCmd.AddCommand(migrateCmd, dispatchCmd, exportCmd, importCmd, grantCmd, revokeCmd, tokenCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp wires the full application for one command and closes it after.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
