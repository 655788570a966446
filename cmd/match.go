package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/cloudmatch/internal/formatter"
	"github.com/desertthunder/cloudmatch/internal/shared"
	"github.com/desertthunder/cloudmatch/internal/tasks"
)

// Match binds one song (--song/--target) or a CSV of songs (--batch) to
// catalog ids on the current page, then prints the match log.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	batch := cmd.String("batch")
	songID := cmd.String("song")
	targetID := cmd.String("target")
	if batch == "" && (songID == "" || targetID == "") {
		return fmt.Errorf("%w: --song and --target, or --batch", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if _, err := r.ensureLogin(ctx, cmd); err != nil {
		return err
	}

	var matchErr error
	if batch != "" {
		matchErr = r.matchBatch(ctx, cmd, batch)
	} else {
		matchErr = r.matchOne(ctx, cmd, songID, targetID)
	}

	if entries := r.history.Entries(); len(entries) > 0 {
		data, err := formatter.RenderLog(entries, format, true)
		if err != nil {
			return err
		}
		r.writePlainln("Match log")
		if err := r.writeBytes(data); err != nil {
			return err
		}
		if format == formatter.FormatJSON {
			r.writePlain("\n")
		}
	}
	return matchErr
}

func (r *Runner) matchOne(ctx context.Context, cmd *cli.Command, songID, targetID string) error {
	if _, err := r.loadPage(ctx, cmd); err != nil {
		return err
	}

	outcome, err := r.matcher.PerformMatch(ctx, songID, targetID)
	if outcome == nil {
		return err
	}

	marker := "✓"
	if err != nil {
		marker = "✗"
	}
	r.writePlain("%s %s\n", marker, outcome.Message)
	return err
}

func (r *Runner) matchBatch(ctx context.Context, cmd *cli.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	jobs, err := tasks.ParseMatchJobs(f)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: %s has no match rows", shared.ErrInvalidInput, path)
	}

	r.logger.Info("starting bulk match", "jobs", len(jobs), "file", path)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadPage:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.MatchSongs:
				if update.Step == 0 {
					r.writePlain("\n🔗 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			}
		}
	}()

	result, err := r.matcher.BulkMatch(ctx, progressCh, jobs, tasks.BulkMatchOpts{
		Page:       cmd.Int("page"),
		Limit:      cmd.Int("limit"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float64("rate"),
	})
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Bulk Match Complete!")
	r.writePlain("Succeeded: %d/%d\n", result.Succeeded, result.Total)
	if result.Failed > 0 {
		r.writePlain("\nFailed to match %d songs:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s -> %s: %v\n", res.Job.SongID, res.Job.TargetID, res.Error)
			}
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d matches failed", result.Failed, result.Total)
	}
	return nil
}
