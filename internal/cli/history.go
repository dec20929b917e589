package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/vietddude/soqlguard/internal/control"
	"github.com/vietddude/soqlguard/internal/infra/storage"
	"github.com/vietddude/soqlguard/internal/output"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent executions",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of executions to show")
	rootCmd.AddCommand(historyCmd)
}

var historyColumns = []string{"id", "started_at", "kind", "attempts", "records", "removed", "final_query"}

func historyRows(execs []storage.Execution) []map[string]any {
	rows := make([]map[string]any, len(execs))
	for i, e := range execs {
		rows[i] = map[string]any{
			"id":          e.ID,
			"started_at":  e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			"kind":        string(e.Kind),
			"attempts":    e.Attempts,
			"records":     e.RecordCount,
			"removed":     strings.Join(e.RemovedFields, ", "),
			"final_query": e.FinalQuery,
		}
	}
	return rows
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, control.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	execs, err := app.History.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	f, err := output.New(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return f.Format(historyColumns, historyRows(execs))
}
