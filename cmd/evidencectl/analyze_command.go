package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"incident-insights-go/internal/actionable"
	"incident-insights-go/internal/app"
	"incident-insights-go/internal/pipeline"
	"incident-insights-go/internal/types"
)

type evidenceFlags struct {
	video    string
	audio    string
	text     string
	interval float64
	workers  int
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags evidenceFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one piece of evidence of each kind and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			textSet := cmd.Flags().Changed("text")
			if flags.video == "" && flags.audio == "" && !textSet {
				return fmt.Errorf("provide at least one of --video, --audio or --text")
			}
			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				req, err := buildRequest(c, rt, flags, textSet)
				if err != nil {
					return err
				}
				res, err := rt.Pipeline.Analyze(c, req)
				if err != nil {
					return err
				}
				if wantJSON(cmd, jsonOut) {
					return writeJSON(cmd, res)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSession(res))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.video, "video", "", "Video file to sample")
	cmd.Flags().StringVar(&flags.audio, "audio", "", "Audio file to transcribe")
	cmd.Flags().StringVar(&flags.text, "text", "", "Free-text witness report")
	cmd.Flags().Float64Var(&flags.interval, "interval", 0, "Seconds between sampled frames (default from config)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Parallel classifications for video, capped by config")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON even on a terminal")
	return cmd
}

func buildRequest(ctx context.Context, rt *app.Runtime, f evidenceFlags, textSet bool) (pipeline.Request, error) {
	var req pipeline.Request
	if f.video != "" {
		dec, err := rt.OpenVideo(ctx, f.video)
		if err != nil {
			return req, fmt.Errorf("open video: %w", err)
		}
		req.Video = rt.VideoInput(dec, f.interval, f.workers)
	}
	if f.audio != "" {
		clip, err := app.ReadAudio(f.audio)
		if err != nil {
			return req, err
		}
		req.Audio = &clip
	}
	if textSet {
		text := f.text
		req.Text = &text
	}
	return req, nil
}

func renderSession(res *types.SessionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", res.SessionID)
	fmt.Fprintf(&b, "Events: %s\n", strings.Join(res.Events, ", "))
	if res.TimedOut {
		b.WriteString("Result is partial: analysis timed out\n")
	}

	var rows [][]string
	for _, m := range []types.Modality{types.KindVideo, types.KindAudio, types.KindText} {
		summary, ok := res.Summaries[m]
		if !ok {
			continue
		}
		rows = append(rows, []string{string(m), fmt.Sprintf("%.2f", res.Confidence[m]), summary})
	}
	b.WriteString(renderTable([]string{"Modality", "Confidence", "Summary"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	b.WriteString("\n")

	if len(res.Units) > 0 {
		frames := make([][]string, 0, len(res.Units))
		for _, u := range res.Units {
			cat := u.Classification.Category
			if u.Error != "" {
				cat += " (" + u.Error + ")"
			}
			frames = append(frames, []string{
				strconv.Itoa(u.UnitIndex),
				u.Timestamp.Round(time.Millisecond).String(),
				cat,
				fmt.Sprintf("%.2f", u.Classification.Confidence),
			})
		}
		b.WriteString(renderTable([]string{"Frame", "Time", "Category", "Confidence"}, frames,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignRight}))
		b.WriteString("\n")
	}

	card := actionable.Generate(res)
	fmt.Fprintf(&b, "Recommended: %s [%s]\n", card.Action, card.Priority)
	if res.Transcript != nil {
		fmt.Fprintf(&b, "Transcript (%s): %s\n", res.Transcript.Language, res.Transcript.TranslatedText)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return b.String()
}
