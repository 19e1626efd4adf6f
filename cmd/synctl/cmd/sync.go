package cmd

import (
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/service"

	"github.com/spf13/cobra"
)

var (
	syncTenants  []int64
	syncRecords  []int64
	syncTypes    []string
	syncBatch    string
	syncPriority int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a synchronization",
}

var syncUserCmd = &cobra.Command{
	Use:   "user <global-user-id>",
	Short: "Project a global user into tenants (default: all tenants the user belongs to)",
	Args:  cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) (*v1.SyncBatchData, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		batch, err := svc.Sync.SyncGlobalUserToTenants(cmd.Context(), id, syncTenants, syncOptions())
		if err != nil {
			return nil, err
		}
		return batchResult(batch)
	}, printBatch),
}

var syncCourseCmd = &cobra.Command{
	Use:   "course <global-course-id>",
	Short: "Project a global course into tenants (default: all tenants offering it)",
	Args:  cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) (*v1.SyncBatchData, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		batch, err := svc.Sync.SyncGlobalCourseToTenants(cmd.Context(), id, syncTenants, syncOptions())
		if err != nil {
			return nil, err
		}
		return batchResult(batch)
	}, printBatch),
}

var syncTenantCmd = &cobra.Command{
	Use:   "tenant <tenant-id> <sync-type>",
	Short: "Merge tenant data back into the global partition (user_sync, enrollment_sync, analytics_sync)",
	Args:  cobra.ExactArgs(2),
	RunE: runE(func(cmd *cobra.Command, args []string) (*v1.SyncBatchData, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		opts := syncOptions()
		result, err := svc.Sync.SyncTenantDataToGlobal(cmd.Context(), id, model.SyncType(args[1]), syncRecords, opts)
		if err != nil {
			return nil, err
		}
		batch := &service.SyncBatch{Results: []service.UnitResult{result}}
		if result.Entry != nil {
			batch.BatchID = result.Entry.BatchID
		}
		return batchResult(batch)
	}, printBatch),
}

var syncBidirectionalCmd = &cobra.Command{
	Use:   "bidirectional <tenant-id>",
	Short: "Run global->tenant and tenant->global for each sync type under the tenant lock",
	Args:  cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) (*v1.BidirectionalReport, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		types := make([]model.SyncType, 0, len(syncTypes))
		for _, t := range syncTypes {
			types = append(types, model.SyncType(t))
		}
		report, err := svc.Sync.PerformBidirectionalSync(cmd.Context(), id, types, syncOptions())
		if err != nil {
			return nil, err
		}
		for _, d := range report.Directions {
			if d.Error != "" {
				return report, fmt.Errorf("%w: %s %s", errUnitsFailed, d.SyncType, d.Direction)
			}
		}
		return report, nil
	}, printBidirectional),
}

func syncOptions() service.SyncOptions {
	return service.SyncOptions{BatchID: syncBatch, Priority: syncPriority}
}

func batchResult(batch *service.SyncBatch) (*v1.SyncBatchData, error) {
	data := batch.Data()
	if data.Failed > 0 {
		return data, fmt.Errorf("%w: %d of %d", errUnitsFailed, data.Failed, len(batch.Results))
	}
	return data, nil
}

func printBatch(data *v1.SyncBatchData) {
	if data == nil {
		return
	}
	titleColor.Printf("batch %s\n", data.BatchID)
	printEntries(data.Entries)
}

func printBidirectional(report *v1.BidirectionalReport) {
	if report == nil {
		return
	}
	titleColor.Printf("tenant %d, batch %s\n", report.TenantID, report.BatchID)
	w := newTable()
	fmt.Fprintln(w, "TYPE\tDIRECTION\tENTRIES\tRESULT")
	for _, d := range report.Directions {
		result := statusText("completed")
		switch {
		case d.Skipped:
			result = statusText("skipped")
		case d.Error != "":
			result = statusText("failed") + " " + d.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.SyncType, d.Direction, len(d.Entries), result)
	}
	w.Flush()
}

func init() {
	for _, c := range []*cobra.Command{syncUserCmd, syncCourseCmd, syncTenantCmd, syncBidirectionalCmd} {
		c.Flags().StringVar(&syncBatch, "batch", "", "batch id shared by the created ledger entries (default: generated)")
		c.Flags().IntVar(&syncPriority, "priority", 0, "ledger entry priority (default: sync.default_priority)")
	}
	syncUserCmd.Flags().Int64SliceVar(&syncTenants, "tenant", nil, "target tenant ids")
	syncCourseCmd.Flags().Int64SliceVar(&syncTenants, "tenant", nil, "target tenant ids")
	syncTenantCmd.Flags().Int64SliceVar(&syncRecords, "record", nil, "tenant record ids to merge back (user_sync only)")
	syncBidirectionalCmd.Flags().StringSliceVar(&syncTypes, "type", nil, "sync types (default: all data sync types)")

	syncCmd.AddCommand(syncUserCmd, syncCourseCmd, syncTenantCmd, syncBidirectionalCmd)
}
