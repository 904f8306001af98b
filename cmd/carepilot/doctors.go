package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepilot/carepilot/internal/domain/directory"
)

func doctorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "Manage the doctor directory",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated doctors into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetUint64("seed")
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.directoryService(nil)
			created, skipped, err := svc.Seed(cmd.Context(), directory.GenerateDoctors(count, seed, time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d doctor(s), %d already present.\n", created, skipped)
			return nil
		},
	}
	seedCmd.Flags().Int("count", 25, "Number of doctors to generate")
	seedCmd.Flags().Uint64("seed", 1, "Random seed; the same seed yields the same doctors")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the directory between the database and blob storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			if to != "blob" && to != "sql" {
				return fmt.Errorf("--to must be \"blob\" or \"sql\", got %q", to)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			blobs, err := openBlobStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			svc := a.directoryService(blobs)

			var n int
			if to == "blob" {
				if blobs == nil {
					return fmt.Errorf("AZURE_STORAGE_CONNECTION_STRING is required to sync to blob storage")
				}
				n, err = svc.SyncToBlob(cmd.Context())
			} else {
				n, err = svc.SyncToSQL(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d doctor(s) to %s.\n", n, to)
			return nil
		},
	}
	syncCmd.Flags().String("to", "", "Destination: blob or sql")

	cmd.AddCommand(seedCmd, syncCmd)
	return cmd
}
