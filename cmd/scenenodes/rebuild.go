package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/scenenodes/internal/engine"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the graph once, store it and report FINISHED or CANCELLED",
	RunE:  runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", engine.StatusCancelled, err)
		return err
	}
	defer a.close()

	res, err := a.eng.Rebuild(ctx)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", engine.StatusCancelled, err)
		return err
	}
	for _, sk := range res.Report.Skipped {
		slog.Warn("skipped", "kind", sk.Kind, "label", sk.Label, "reason", sk.Reason)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Status)
	return nil
}
