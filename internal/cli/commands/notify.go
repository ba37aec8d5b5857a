package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alerteye/internal/api/client"
	"github.com/spf13/cobra"
)

func NewNotifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notify",
		Short:   "Notification commands",
		Aliases: []string{"n"},
	}

	cmd.AddCommand(newNotifySendCommand())
	cmd.AddCommand(newNotifyStatsCommand())

	return cmd
}

func newNotifySendCommand() *cobra.Command {
	var (
		channel  string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "send [title] [message]",
		Short: "Queue a notification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			id, err := c.SendNotification(args[0], args[1], channel, priority)
			if err != nil {
				return fmt.Errorf("failed to send notification: %v", err)
			}

			fmt.Printf("Notification queued: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "log", "Delivery channel")
	cmd.Flags().StringVar(&priority, "priority", "normal", "Priority (low/normal/high/urgent)")
	return cmd
}

func newNotifyStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dispatcher statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			stats, err := c.GetNotificationStats()
			if err != nil {
				return fmt.Errorf("failed to get notification stats: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Sent:\t%d\n", stats.Sent)
			fmt.Fprintf(w, "Failed:\t%d\n", stats.Failed)
			fmt.Fprintf(w, "Queued:\t%d\n", stats.Queued)
			fmt.Fprintf(w, "Dropped:\t%d\n", stats.Dropped)
			fmt.Fprintf(w, "Expired:\t%d\n", stats.Expired)
			fmt.Fprintf(w, "In queue:\t%d\n", stats.QueueSize)
			for channel, count := range stats.ByChannel {
				fmt.Fprintf(w, "Channel %s:\t%d\n", channel, count)
			}
			return w.Flush()
		},
	}
	return cmd
}
