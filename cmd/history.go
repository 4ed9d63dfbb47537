package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/chatdj/internal/formatter"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the most recent plays, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	history, err := r.openHistory()
	if err != nil {
		return err
	}

	entries := history.Recent(cmd.Int("limit"))
	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playback history (%d of %d)", len(entries), history.Len()))
	if len(entries) == 0 {
		return r.writePlain("No plays recorded yet\n")
	}
	for _, e := range entries {
		r.writePlain("%s  %s - %s  [%s]\n", e.Timestamp.Local().Format(time.DateTime), e.TrackName, e.ArtistName, e.RequestedBy)
	}
	return nil
}

// HistoryExport writes the full history, in insertion order, to a file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	history, err := r.openHistory()
	if err != nil {
		return err
	}

	entries := history.Entries()
	path, err := formatter.WriteExport(entries, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("history exported", "entries", len(entries), "format", format)
	return r.writePlain("✓ Exported %d plays to %s\n", len(entries), path)
}

// HistoryClear empties the history and its snapshot.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	history, err := r.openHistory()
	if err != nil {
		return err
	}

	n := history.Len()
	if err := history.Clear(); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d plays\n", n)
}
