package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/formatter"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// Songs prints one page of the drive, optionally filtered and sorted.
func (r *Runner) Songs(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if spec := cmd.String("sort"); spec != "" {
		keys, err := cloud.ParseSortKeys(spec)
		if err != nil {
			return err
		}
		r.store.ApplySort(keys...)
	}

	if _, err := r.ensureLogin(ctx, cmd); err != nil {
		return err
	}
	res, err := r.loadPage(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Clamped {
		r.logger.Warn("page out of range", "requested", res.Requested, "showing", res.Page.Number)
	}

	songs := res.Songs
	if q := cmd.String("search"); q != "" {
		songs = r.store.Search(q)
	}

	data, err := formatter.RenderSongs(formatter.NewSongPage(res.Page, res.Usage, songs), format, cmd.Bool("pretty"))
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("songs exported", "path", path, "songs", len(songs))
		return r.writePlain("✓ Wrote %s to %s\n", formatter.SongCount(len(songs)), path)
	}

	if err := r.writeBytes(data); err != nil {
		return err
	}
	if format == formatter.FormatText {
		return r.writePlain("Page %d/%d · %s · %s / %s\n",
			res.Page.Number, res.Page.TotalPages(), formatter.SongCount(res.Page.Total),
			shared.FormatCapacity(res.Usage.UsedBytes), shared.FormatCapacity(res.Usage.CapacityBytes))
	}
	return nil
}

// loadPage fetches --page/--limit, reusing the page loaded at login when it
// is the one asked for.
func (r *Runner) loadPage(ctx context.Context, cmd *cli.Command) (*cloud.PageResult, error) {
	page := cmd.Int("page")
	limit := cmd.Int("limit")
	if limit == 0 {
		limit = r.store.PageSize()
	}

	if snap := r.store.Snapshot(); snap.Loaded && snap.Page.Number == page && snap.Page.Size == limit {
		return &cloud.PageResult{
			Page:      snap.Page,
			Songs:     snap.Songs,
			Usage:     snap.Usage,
			Version:   snap.Version,
			Requested: page,
		}, nil
	}

	res, err := r.store.FetchPage(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d: %w", page, err)
	}
	return res, nil
}

// outputFormat resolves --format and its --json/--csv shorthands.
func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	switch {
	case cmd.Bool("json") && cmd.Bool("csv"):
		return "", fmt.Errorf("%w: --json and --csv are mutually exclusive", shared.ErrInvalidArgument)
	case cmd.Bool("json"):
		return formatter.FormatJSON, nil
	case cmd.Bool("csv"):
		return formatter.FormatCSV, nil
	default:
		return formatter.ParseFormat(cmd.String("format"))
	}
}
