package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"soltrace/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "soltrace-query",
		Short:        "Inspect events recorded by soltrace-live or soltrace-backfill",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("db-url", "", "storage URL (sqlite:, postgres://, or mongodb://)")

	root.AddCommand(latestSlotCmd(), byProgramCmd(), byNameCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(cmd *cobra.Command) (storage.Store, error) {
	dbURL, _ := cmd.Flags().GetString("db-url")
	if dbURL == "" {
		return nil, fmt.Errorf("--db-url is required")
	}
	return storage.Open(context.Background(), dbURL)
}

func printJSONLines(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	switch records := v.(type) {
	case []storage.EventRecord:
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(v)
	}
}

func latestSlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest-slot <program-id>",
		Short: "Print the highest recorded slot for a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			slot, ok, err := store.LatestSlot(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no events recorded for program %s", args[0])
			}
			return printJSONLines(map[string]interface{}{"program_id": args[0], "latest_slot": slot})
		},
	}
	return cmd
}

func byProgramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "by-program <program-id>",
		Short: "Print every recorded event for a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.EventsByProgram(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSONLines(records)
		},
	}
	return cmd
}

func byNameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "by-name <event-name>",
		Short: "Print every recorded event with a given name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.EventsByName(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSONLines(records)
		},
	}
	return cmd
}
