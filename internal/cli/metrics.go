package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"metrics"},
	Short:   "Display sync metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include save and load counts, failures by HTTP status, syncs by
format and the number of task changes recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		// Table format.
		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Saves:", metrics.Saves)
		fmt.Fprintf(out, "  %-24s %d\n", "Loads:", metrics.Loads)
		fmt.Fprintf(out, "  %-24s %d\n", "Failed saves:", metrics.SaveFailures)
		fmt.Fprintf(out, "  %-24s %d\n", "Failed loads:", metrics.LoadFailures)
		fmt.Fprintf(out, "  %-24s %.0f%%\n", "Success rate:", metrics.SuccessRate()*100)
		fmt.Fprintf(out, "  %-24s %d\n", "Task changes:", metrics.StoreChanges)
		if metrics.DroppedOnLoad > 0 {
			fmt.Fprintf(out, "  %-24s %d\n", "Unknown entries skipped:", metrics.DroppedOnLoad)
		}

		printCounts(out, "Failures by status:", metrics.FailuresByStatus)
		printCounts(out, "Syncs by format:", metrics.SyncsByFormat)

		if metrics.LastSave != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Last save:", metrics.LastSave.Format(time.RFC3339))
		}
		if metrics.LastLoad != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Last load:", metrics.LastLoad.Format(time.RFC3339))
		}
		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(out, "\n  %s\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "    %-20s %d\n", k+":", counts[k])
	}
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
