package cmd

import (
	"fmt"
	"sort"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"

	"github.com/spf13/cobra"
)

var (
	statusTenant int64
	statusHours  int

	retryTenant int64
	retryTypes  []string
	retryLimit  int

	cleanupDays   int
	cleanupDryRun bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the sync ledger over the last N hours",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, _ []string) (*v1.SyncStatusData, error) {
		return svc.Monitor.GetSyncStatus(cmd.Context(), optionalID(cmd, "tenant", statusTenant), statusHours)
	}, printStatus),
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run failed ledger entries that still have retries left",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, _ []string) (*v1.RetryResult, error) {
		types := make([]model.SyncType, 0, len(retryTypes))
		for _, t := range retryTypes {
			types = append(types, model.SyncType(t))
		}
		result, err := svc.Monitor.RetryFailedSyncs(cmd.Context(), optionalID(cmd, "tenant", retryTenant), types, retryLimit)
		if err != nil {
			return nil, err
		}
		if result.Failed > 0 {
			return result, fmt.Errorf("%w: %d of %d retries", errUnitsFailed, result.Failed, result.Attempted)
		}
		return result, nil
	}, printRetry),
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete ledger entries older than the retention window",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, _ []string) (*v1.CleanupResult, error) {
		return svc.Monitor.CleanupSyncData(cmd.Context(), cleanupDays, cleanupDryRun)
	}, printCleanup),
}

func optionalID(cmd *cobra.Command, flag string, value int64) *int64 {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func printStatus(data *v1.SyncStatusData) {
	if data == nil {
		return
	}
	titleColor.Printf("sync status since %s\n", data.Since.Format("2006-01-02 15:04:05 MST"))
	t := data.Totals
	fmt.Printf("total %d  completed %d  failed %d  running %d  pending %d  retrying %d  cancelled %d\n",
		t.TotalSyncs, t.CompletedSyncs, t.FailedSyncs, t.RunningSyncs, t.PendingSyncs, t.RetryingSyncs, t.CancelledSyncs)

	if len(data.BySyncType) > 0 {
		types := make([]string, 0, len(data.BySyncType))
		for k := range data.BySyncType {
			types = append(types, k)
		}
		sort.Strings(types)
		w := newTable()
		fmt.Fprintln(w, "\nSYNC TYPE\tTOTAL\tCOMPLETED\tFAILED\tSUCCESS")
		for _, k := range types {
			b := data.BySyncType[k]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f%%\n", k, b.Total, b.Completed, b.Failed, b.SuccessRate)
		}
		w.Flush()
	}

	p := data.Performance
	fmt.Printf("\navg %.2fms  min %dms  max %dms  records %d  throughput %.2f/h\n",
		p.AvgDurationMs, p.MinDurationMs, p.MaxDurationMs, p.TotalRecordsProcessed, p.ThroughputPerHour)

	if len(data.RecentFailures) > 0 {
		w := newTable()
		fmt.Fprintln(w, "\nFAILED\tTYPE\tTENANT\tRETRIES\tRETRYABLE\tERROR")
		for _, f := range data.RecentFailures {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\t%s\n", f.ID, f.SyncType, f.TenantID, f.RetryCount, f.CanRetry, f.ErrorMessage)
		}
		w.Flush()
	}
}

func printRetry(result *v1.RetryResult) {
	if result == nil {
		return
	}
	fmt.Printf("attempted %d  succeeded %d  failed %d  skipped %d\n",
		result.Attempted, result.Succeeded, result.Failed, result.Skipped)
	if len(result.Entries) == 0 {
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tTYPE\tTENANT\tSTATUS\tRETRIES\tERROR")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%s\n", e.ID, e.SyncType, e.TenantID, statusText(e.Status), e.RetryCount, e.Error)
	}
	w.Flush()
}

func printCleanup(result *v1.CleanupResult) {
	if result == nil {
		return
	}
	if result.DryRun {
		fmt.Printf("dry run: %d entries older than %s would be deleted\n",
			result.RecordsFound, result.Cutoff.Format("2006-01-02"))
		return
	}
	var deleted int64
	if result.RecordsDeleted != nil {
		deleted = *result.RecordsDeleted
	}
	fmt.Printf("deleted %d entries older than %s, invalidated %d cache keys\n",
		deleted, result.Cutoff.Format("2006-01-02"), result.CacheKeysInvalidated)
}

func init() {
	statusCmd.Flags().Int64Var(&statusTenant, "tenant", 0, "only count entries of this tenant")
	statusCmd.Flags().IntVar(&statusHours, "hours", 24, "look-back window in hours")

	retryCmd.Flags().Int64Var(&retryTenant, "tenant", 0, "only retry entries of this tenant")
	retryCmd.Flags().StringSliceVar(&retryTypes, "type", nil, "only retry these sync types")
	retryCmd.Flags().IntVar(&retryLimit, "limit", 0, "max entries to retry (default: sync.retry_batch_limit)")

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "days to keep (default: sync.retention_days)")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "only count the entries that would be deleted")
}
