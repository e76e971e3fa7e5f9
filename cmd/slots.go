package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/teemow/tailortalk/internal/schedule"
)

func newSlotsCmd() *cobra.Command {
	var (
		start      string
		end        string
		duration   time.Duration
		maxResults int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free slots in a time window",
		Long: `List free appointment slots between --start and --end without starting
a conversation. Both bounds are RFC 3339 timestamps with a zone offset, for
example 2025-01-16T09:00:00+01:00.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := schedule.ParseRange(start, end)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cmd.Flags(), appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if duration <= 0 {
				duration = a.cfg.DefaultDuration
			}
			slots, err := a.service.FindSlots(cmd.Context(), window, duration, maxResults)
			if err != nil {
				return err
			}
			return printSlots(cmd.OutOrStdout(), slots, asJSON)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start of the search window (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "End of the search window (RFC 3339)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Meeting length (default: the configured default duration)")
	cmd.Flags().IntVar(&maxResults, "max", 0, "Maximum number of slots (default: the configured maximum)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print slots as JSON")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func printSlots(w io.Writer, slots []schedule.Slot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}

	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "No free slots in that window.")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Slot", "Start", "Length"})
	for i, slot := range slots {
		t.AppendRow(table.Row{
			i + 1,
			slot.Label,
			slot.Range.Start.Format(time.RFC3339),
			schedule.FormatDuration(slot.Range.End.Sub(slot.Range.Start)),
		})
	}
	t.Render()
	return nil
}
