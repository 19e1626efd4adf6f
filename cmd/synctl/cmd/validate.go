package cmd

import (
	"fmt"
	"sort"

	v1 "tenantsync/api/v1"

	"github.com/spf13/cobra"
)

var (
	validateTenant int64
	validateChecks []string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that tenant projections agree with the global partition",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, _ []string) (*v1.IntegrityReport, error) {
		report, err := svc.Integrity.ValidateIntegrity(cmd.Context(), optionalID(cmd, "tenant", validateTenant), validateChecks)
		if err != nil {
			return nil, err
		}
		if !report.Valid {
			return report, errIntegrityViolated
		}
		return report, nil
	}, printIntegrity),
}

func printIntegrity(report *v1.IntegrityReport) {
	if report == nil {
		return
	}
	w := newTable()
	fmt.Fprintln(w, "TENANT\tCHECK\tSTATUS\tISSUES")
	for _, t := range report.Tenants {
		names := make([]string, 0, len(t.Checks))
		for name := range t.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := t.Checks[name]
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", t.TenantID, name, statusText(c.Status), len(c.Issues))
		}
	}
	w.Flush()

	for _, t := range report.Tenants {
		for name, c := range t.Checks {
			if c.Message != "" {
				fmt.Printf("tenant %d %s: %s\n", t.TenantID, name, c.Message)
			}
			for _, issue := range c.Issues {
				fmt.Printf("tenant %d %s: %s %s\n", t.TenantID, name, issue.Type, issue.Detail)
			}
		}
	}
}

func init() {
	validateCmd.Flags().Int64Var(&validateTenant, "tenant", 0, "only validate this tenant (default: all tenants)")
	validateCmd.Flags().StringSliceVar(&validateChecks, "check", nil,
		"checks to run: user_consistency, course_consistency, enrollment_consistency, membership_consistency")
}
