package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alerteye/internal/api/client"
	"github.com/alerteye/internal/models"
	"github.com/spf13/cobra"
)

func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Short:   "Alert management commands",
		Aliases: []string{"alerts", "a"},
	}

	cmd.AddCommand(newAlertListCommand())
	cmd.AddCommand(newAlertShowCommand())
	cmd.AddCommand(newAlertAcknowledgeCommand())
	cmd.AddCommand(newAlertResolveCommand())
	cmd.AddCommand(newAlertSuppressCommand())

	return cmd
}

func printAlertTable(alerts []models.SerializedAlert) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tLEVEL\tTITLE\tSTATUS\tCATEGORY\tAGE(s)")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0f\n",
			a.AlertID,
			a.Source,
			a.Level,
			a.Title,
			a.Status,
			a.Category,
			a.AgeSeconds,
		)
	}
	return w.Flush()
}

func newAlertListCommand() *cobra.Command {
	var (
		status string
		level  string
		source string
		active bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List alerts",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			var alerts []models.SerializedAlert
			if active {
				alerts, err = c.ListActiveAlerts()
			} else {
				alerts, err = c.ListAlerts(status, level, source)
			}
			if err != nil {
				return fmt.Errorf("failed to list alerts: %v", err)
			}

			return printAlertTable(alerts)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (new/acknowledged/resolved/suppressed/expired)")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level (info/low/medium/high/critical)")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source")
	cmd.Flags().BoolVar(&active, "active", false, "Only show active alerts")

	return cmd
}

func newAlertShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [alert_id]",
		Short: "Show one alert in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			a, err := c.GetAlert(args[0])
			if err != nil {
				return fmt.Errorf("failed to get alert: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "ID:\t%s\n", a.AlertID)
			fmt.Fprintf(w, "Source:\t%s\n", a.Source)
			fmt.Fprintf(w, "Level:\t%s\n", a.Level)
			fmt.Fprintf(w, "Title:\t%s\n", a.Title)
			fmt.Fprintf(w, "Description:\t%s\n", a.Description)
			fmt.Fprintf(w, "Status:\t%s\n", a.Status)
			fmt.Fprintf(w, "Category:\t%s\n", a.Category)
			fmt.Fprintf(w, "Tags:\t%v\n", a.Tags)
			fmt.Fprintf(w, "Timestamp:\t%s\n", a.Timestamp)
			fmt.Fprintf(w, "Escalation:\t%d\n", a.EscalationLevel)
			fmt.Fprintf(w, "Attention:\t%v\n", a.RequiresAttention)
			return w.Flush()
		},
	}
	return cmd
}

func newAlertAcknowledgeCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:     "acknowledge [alert_id]",
		Short:   "Acknowledge an alert",
		Aliases: []string{"ack"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.AcknowledgeAlert(args[0], user); err != nil {
				return fmt.Errorf("failed to acknowledge alert: %v", err)
			}

			fmt.Printf("Alert %s acknowledged\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Acting user")
	return cmd
}

func newAlertResolveCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "resolve [alert_id]",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.ResolveAlert(args[0], user); err != nil {
				return fmt.Errorf("failed to resolve alert: %v", err)
			}

			fmt.Printf("Alert %s resolved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Acting user")
	return cmd
}

func newAlertSuppressCommand() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "suppress [alert_id]",
		Short: "Suppress an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.SuppressAlert(args[0], reason); err != nil {
				return fmt.Errorf("failed to suppress alert: %v", err)
			}

			fmt.Printf("Alert %s suppressed\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "suppressed via cli", "Suppression reason")
	return cmd
}
