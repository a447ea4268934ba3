package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded evaluations",
		Long: `Inspect the evaluation history.

Evaluations are recorded when history is enabled (--history or
history.enabled in leapcalc.yaml). These commands read the configured
store whether or not recording is enabled.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryStatsCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	opts := history.ListOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent evaluations",
		Example: `  leapcalc history list --limit 5
  leapcalc history list --errors -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContextWithHistory(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := cmdCtx.Engine.History().List(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}
			if records == nil {
				records = []history.Record{}
			}

			r := cmdCtx.Renderer
			if ok, err := r.Structured(records); ok {
				return err
			}

			if len(records) == 0 {
				r.Println(r.Muted("No evaluations recorded."))
				return nil
			}

			rows := make([][]string, len(records))
			for i, rec := range records {
				rows[i] = []string{
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Source,
					rec.Expression,
					recordOutcome(rec),
				}
			}
			r.Table([]string{"Time", "Source", "Expression", "Result"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of records (0 for all)")
	cmd.Flags().BoolVar(&opts.ErrorsOnly, "errors", false, "Only show failed evaluations")

	return cmd
}

func newHistoryStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded evaluations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContextWithHistory(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := cmdCtx.Engine.History().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to summarize history: %w", err)
			}

			r := cmdCtx.Renderer
			if ok, err := r.Structured(st); ok {
				return err
			}

			r.Header(1, "History")
			rows := [][]string{
				{"Total", strconv.Itoa(st.Total)},
				{"Succeeded", strconv.Itoa(st.Succeeded)},
				{"Failed", strconv.Itoa(st.Failed)},
			}
			kinds := make([]string, 0, len(st.ByKind))
			for k := range st.ByKind {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				rows = append(rows, []string{"  " + k, strconv.Itoa(st.ByKind[k])})
			}
			r.Table([]string{"Outcome", "Count"}, rows)
			return nil
		},
	}
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded evaluations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContextWithHistory(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := cmdCtx.Engine.History().Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			r := cmdCtx.Renderer
			if ok, err := r.Structured(map[string]int64{"deleted": n}); ok {
				return err
			}
			r.Success(fmt.Sprintf("Deleted %d records", n))
			return nil
		},
	}
}

// recordOutcome renders the result or error kind of a record.
func recordOutcome(rec history.Record) string {
	if rec.Failed() {
		return rec.ErrorKind
	}
	if rec.Result != nil {
		return strconv.FormatInt(*rec.Result, 10)
	}
	return ""
}
