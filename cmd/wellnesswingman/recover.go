package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DigitumDei/WellnessWingman-sub001/cmd/config"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Reset interrupted entries and analyse everything still pending",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := config.NewContainer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := container.Close(context.Background()); err == nil {
				err = closeErr
			}
		}()

		report, err := container.Recovery.RecoverStaleEntries(cmd.Context())
		if err != nil {
			return err
		}
		container.Orchestrator.Wait()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "reset:    %d\n", len(report.Reset))
		fmt.Fprintf(out, "requeued: %d\n", len(report.Requeued))
		fmt.Fprintf(out, "failed:   %d\n", len(report.Failed))
		for _, id := range report.Failed {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
