package cmd

import (
	v1 "tenantsync/api/v1"
	"tenantsync/internal/service"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <sync-log-id>",
	Short: "Cancel a ledger entry",
	Args:  cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) ([]v1.SyncEntry, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		entry, err := svc.Ledger.Cancel(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		return []v1.SyncEntry{service.SyncEntryData(entry)}, nil
	}, printEntries),
}

var batchCmd = &cobra.Command{
	Use:   "batch <batch-id>",
	Short: "List the ledger entries of a batch",
	Args:  cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) ([]v1.SyncEntry, error) {
		entries, err := svc.Ledger.ListByBatch(cmd.Context(), args[0])
		if err != nil {
			return nil, err
		}
		data := make([]v1.SyncEntry, 0, len(entries))
		for _, e := range entries {
			data = append(data, service.SyncEntryData(e))
		}
		return data, nil
	}, printEntries),
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
