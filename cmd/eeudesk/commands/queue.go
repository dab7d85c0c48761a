package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage writes queued while offline",
	}

	cmd.AddCommand(c.newQueueListCmd())
	cmd.AddCommand(c.newQueueDrainCmd())
	cmd.AddCommand(c.newQueueClearCmd())
	return cmd
}

func (c *CLI) newQueueListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending writes, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			queue, closeQueue, err := openQueue(cmd.Context(), c.config().Queue)
			if err != nil {
				return err
			}
			defer closeQueue(context.Background())

			items := queue.Items()
			out := cmd.OutOrStdout()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			if len(items) == 0 {
				_, err := fmt.Fprintln(out, "No pending writes")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMETHOD\tENDPOINT\tATTEMPTS\tQUEUED AT\tTEMP ID")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					it.ID, it.Method, it.Endpoint, it.Attempts, it.EnqueuedAt.Format("2006-01-02 15:04:05"), it.TempID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Bool("json", false, "Print items as JSON")
	return cmd
}

func (c *CLI) newQueueDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Replay pending writes against the endpoint now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			offline, _ := cmd.Flags().GetBool("offline")

			rt, err := newRuntime(cmd.Context(), c.config(), offline)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			report := rt.client.Drain(cmd.Context())
			if report.Skipped {
				return fmt.Errorf("drain skipped: endpoint unreachable, %d writes pending", report.Remaining)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "replayed=%d failed=%d dropped=%d remaining=%d\n",
				report.Replayed, report.Failed, report.Dropped, report.Remaining)
			return err
		},
	}
}

func (c *CLI) newQueueClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard every pending write",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to discard pending writes without --yes")
			}

			queue, closeQueue, err := openQueue(cmd.Context(), c.config().Queue)
			if err != nil {
				return err
			}
			defer closeQueue(context.Background())

			n := queue.Len()
			if err := queue.Clear(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d pending writes\n", n)
			return err
		},
	}

	cmd.Flags().Bool("yes", false, "Confirm discarding the queue")
	return cmd
}
