package cmd

import (
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/service"

	"github.com/spf13/cobra"
)

var (
	resolveConflict service.Conflict
	resolveStrategy string
	resolveBatch    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a conflict between a global record and its tenant copy",
	Long: `Resolve a conflict between a global record and its tenant copy.

Strategies: global_wins overwrites the tenant copy, tenant_wins overwrites the
global record, merge keeps the tenant value wherever it is non-empty and writes
the result to both sides, manual only records the conflict for review.`,
	Args: cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, _ []string) ([]v1.SyncEntry, error) {
		strategy := service.ConflictStrategy(resolveStrategy)
		var merge service.MergeFunc
		if strategy == service.StrategyMerge {
			merge = preferTenant
		}
		result, err := svc.Conflict.ResolveConflict(cmd.Context(), resolveConflict, strategy, merge,
			service.SyncOptions{BatchID: resolveBatch})
		if err != nil {
			return nil, err
		}
		var entries []v1.SyncEntry
		if result.Entry != nil {
			entries = append(entries, service.SyncEntryData(result.Entry))
		}
		if result.Err != nil {
			return entries, fmt.Errorf("%w: %v", errUnitsFailed, result.Err)
		}
		return entries, nil
	}, printEntries),
}

// preferTenant 租户侧非空值优先
func preferTenant(global, tenant map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(global))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range tenant {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}
	return merged, nil
}

func init() {
	f := resolveCmd.Flags()
	f.Int64Var(&resolveConflict.TenantID, "tenant", 0, "tenant id")
	f.StringVar(&resolveConflict.GlobalTable, "global-table", "", "global table name")
	f.StringVar(&resolveConflict.TenantTable, "tenant-table", "", "tenant table name")
	f.Int64Var(&resolveConflict.GlobalRecordID, "global-id", 0, "global record id")
	f.Int64Var(&resolveConflict.TenantRecordID, "tenant-id", 0, "tenant record id")
	f.StringSliceVar(&resolveConflict.Fields, "field", nil, "fields to resolve (default: all shared business fields)")
	f.StringVar(&resolveStrategy, "strategy", string(service.StrategyManual), "global_wins, tenant_wins, merge or manual")
	f.StringVar(&resolveBatch, "batch", "", "batch id for the ledger entry")
	for _, name := range []string{"tenant", "global-table", "tenant-table", "global-id", "tenant-id"} {
		_ = resolveCmd.MarkFlagRequired(name)
	}
}
