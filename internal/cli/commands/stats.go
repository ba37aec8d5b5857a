package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alerteye/internal/api/client"
	"github.com/spf13/cobra"
)

func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show alert manager statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			stats, err := c.GetStatistics()
			if err != nil {
				return fmt.Errorf("failed to get statistics: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Received:\t%d\n", stats.AlertsReceived)
			fmt.Fprintf(w, "Total:\t%d\n", stats.TotalAlerts)
			fmt.Fprintf(w, "Active:\t%d\n", stats.ActiveAlerts)
			fmt.Fprintf(w, "Attention:\t%d\n", stats.AttentionRequired)
			fmt.Fprintf(w, "Duplicates filtered:\t%d\n", stats.DuplicatesFiltered)
			fmt.Fprintf(w, "Correlated:\t%d\n", stats.AlertsCorrelated)
			fmt.Fprintf(w, "Escalated:\t%d\n", stats.AlertsEscalated)
			fmt.Fprintf(w, "Rules:\t%d\n", stats.RuleCount)
			for level, count := range stats.LevelCounts {
				fmt.Fprintf(w, "Level %s:\t%d\n", level, count)
			}
			return w.Flush()
		},
	}
	return cmd
}

func NewSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the active alert summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			summary, err := c.GetSummary()
			if err != nil {
				return fmt.Errorf("failed to get summary: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Active:\t%d\n", summary.TotalActive)
			fmt.Fprintf(w, "Attention:\t%d\n", summary.RequiresAttention)
			fmt.Fprintf(w, "Critical:\t%d\n", summary.Critical)
			fmt.Fprintf(w, "High:\t%d\n", summary.High)
			fmt.Fprintf(w, "Medium:\t%d\n", summary.Medium)
			fmt.Fprintf(w, "Last hour:\t%d\n", summary.RecentHour)
			if summary.OldestActive != nil {
				fmt.Fprintf(w, "Oldest active:\t%s\n", summary.OldestActive.Format("2006-01-02 15:04:05"))
			}
			for _, cat := range summary.TopCategories {
				fmt.Fprintf(w, "Category %s:\t%d\n", cat.Category, cat.Count)
			}
			return w.Flush()
		},
	}
	return cmd
}
