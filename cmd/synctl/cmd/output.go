package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	v1 "tenantsync/api/v1"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	titleColor = color.New(color.FgCyan, color.Bold)

	errUnitsFailed       = errors.New("sync units failed")
	errIntegrityViolated = errors.New("integrity violations found")
)

// reportedError 已经以 JSON 输出过的错误，Execute 不再重复打印
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// runE 执行 fn，并按 --json 选择输出方式；fn 可以同时返回数据和错误
func runE[T any](fn func(cmd *cobra.Command, args []string) (T, error), human func(T)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		data, err := fn(cmd, args)
		if jsonOutput {
			writeJSON(err, data)
			if err != nil {
				return reportedError{err}
			}
			return nil
		}
		human(data)
		return err
	}
}

func writeJSON(err error, data interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v1.NewResponse(err, data))
}

// exitCode 0 成功；2 参数错误；3 租户正在同步；4 对象不存在；5 一致性检查未通过；1 其他失败
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, v1.ErrSyncInProgress):
		return 3
	case errors.Is(err, v1.ErrTenantNotFound), errors.Is(err, v1.ErrNotFound), errors.Is(err, v1.ErrRecordNotFound):
		return 4
	case errors.Is(err, errIntegrityViolated):
		return 5
	case errors.Is(err, v1.ErrBadRequest),
		errors.Is(err, v1.ErrUnsupportedSyncType),
		errors.Is(err, v1.ErrUnknownStrategy),
		errors.Is(err, v1.ErrUnknownCheck),
		errors.Is(err, v1.ErrMergePolicyRequired),
		errors.Is(err, v1.ErrInvalidIdentifier):
		return 2
	}
	return 1
}

func statusText(status string) string {
	switch status {
	case "completed", v1.CheckStatusValid:
		return color.GreenString(status)
	case "failed", v1.CheckStatusInvalid, v1.CheckStatusError:
		return color.RedString(status)
	}
	return color.YellowString(status)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", v1.ErrBadRequest, s)
	}
	return id, nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printEntries(entries []v1.SyncEntry) {
	if len(entries) == 0 {
		fmt.Println("no sync entries")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tTYPE\tDIRECTION\tTENANT\tSTATUS\tRETRIES\tDURATION\tERROR")
	for _, e := range entries {
		duration := "-"
		if e.DurationMs != nil {
			duration = fmt.Sprintf("%dms", *e.DurationMs)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			e.ID, e.SyncType, e.SyncDirection, e.TenantID, statusText(e.Status), e.RetryCount, duration, e.ErrorMessage)
	}
	w.Flush()
}
