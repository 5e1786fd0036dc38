package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"incident-insights-go/internal/app"
	"incident-insights-go/internal/dataset"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "batch <manifest.xlsx>",
		Short: "Analyze every case of a spreadsheet manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := dataset.LoadManifest(args[0])
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				outcomes, err := runBatch(c, rt, entries)
				if err != nil {
					return err
				}
				if outPath != "" {
					if err := dataset.WriteResults(outPath, outcomes, ctx.logger(cmd)); err != nil {
						return err
					}
				}
				summary := dataset.Summarize(outcomes)
				if wantJSON(cmd, jsonOut) {
					return writeJSON(cmd, summary)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderBatchSummary(summary))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write per-case and per-frame results to this .xlsx file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON even on a terminal")
	return cmd
}

// runBatch analyzes cases one after another; a failing case is recorded and
// the batch continues. Only cancellation stops it.
func runBatch(ctx context.Context, rt *app.Runtime, entries []dataset.Entry) ([]dataset.Outcome, error) {
	outcomes := make([]dataset.Outcome, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		flags := evidenceFlags{video: e.VideoPath, audio: e.AudioPath, text: e.Text, interval: e.IntervalSeconds}
		req, err := buildRequest(ctx, rt, flags, e.Text != "")
		if err != nil {
			outcomes = append(outcomes, dataset.Outcome{Entry: e, Err: err})
			continue
		}
		res, err := rt.Pipeline.Analyze(ctx, req)
		if errors.Is(err, context.Canceled) {
			return outcomes, err
		}
		outcomes = append(outcomes, dataset.Outcome{Entry: e, Result: res, Err: err})
	}
	return outcomes, nil
}

func renderBatchSummary(s dataset.BatchSummary) string {
	events := make([]string, 0, len(s.ByEvent))
	for e := range s.ByEvent {
		events = append(events, e)
	}
	sort.Strings(events)

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{e, strconv.Itoa(s.ByEvent[e])})
	}
	out := fmt.Sprintf("Cases: %d  Failed: %d  Timed out: %d\n", s.TotalCases, s.Failed, s.TimedOut)
	out += renderTable([]string{"Event", "Cases"}, rows, []columnAlignment{alignLeft, alignRight}) + "\n"
	return out
}
