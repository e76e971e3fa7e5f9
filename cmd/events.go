package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/teemow/tailortalk/internal/calendar"
	"github.com/teemow/tailortalk/internal/schedule"
)

func newEventsCmd() *cobra.Command {
	var (
		query      string
		maxResults int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming events on the booking calendar",
		Long: `List events on the configured calendar that have not ended yet.
Use --query to search titles, descriptions and locations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags(), appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			events, err := a.service.UpcomingEvents(cmd.Context(), query, maxResults)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events, asJSON)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Only list events matching this text")
	cmd.Flags().IntVar(&maxResults, "max", calendar.DefaultMaxEvents, "Maximum number of events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON")

	return cmd
}

func printEvents(w io.Writer, events []calendar.Event, asJSON bool) error {
	if asJSON {
		if events == nil {
			events = []calendar.Event{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming events.")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Summary", "Location", "ID"})
	for _, e := range events {
		t.AppendRow(table.Row{
			schedule.FormatRange(schedule.TimeRange{Start: e.Start, End: e.End}),
			e.Summary,
			e.Location,
			e.ID,
		})
	}
	t.Render()
	return nil
}
