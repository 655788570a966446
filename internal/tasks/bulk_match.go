package tasks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// MatchJob pairs a cloud song with the catalog id it should be bound to.
type MatchJob struct {
	SongID   string
	TargetID string
}

// MatchJobResult is the result of one [MatchJob].
type MatchJobResult struct {
	Job     MatchJob
	Outcome *MatchOutcome // nil when the request was never sent
	Error   error
}

// BulkMatchOpts contains configuration for bulk matches.
type BulkMatchOpts struct {
	Page       int     // Page to load before matching; 0 uses the page already loaded
	Limit      int     // Page size used with Page
	NumWorkers int     // Concurrent workers (default: 3, max: 8)
	RateLimit  float64 // Requests per second (default: 2)
}

// BulkMatchResult summarizes a bulk match.
type BulkMatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []MatchJobResult // In completion order
}

// BulkMatch runs jobs through [Matcher.PerformMatch] with a worker pool.
//
// Jobs are throttled on top of the provider client's own limiter. Individual
// failures are recorded in the result; only a failed page load or a cancelled
// ctx is returned as an error.
func (m *Matcher) BulkMatch(ctx context.Context, prog chan<- ProgressUpdate, jobs []MatchJob, opts BulkMatchOpts) (*BulkMatchResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	opts.NumWorkers = min(opts.NumWorkers, 8)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if opts.Page > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = m.store.PageSize()
		}
		sendProgress(prog, loadPageUpdate(opts.Page))
		if _, err := m.store.FetchPage(ctx, opts.Page, limit); err != nil {
			return nil, err
		}
	}

	result := &BulkMatchResult{Total: len(jobs), Results: make([]MatchJobResult, 0, len(jobs))}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	queue := make(chan MatchJob)
	results := make(chan MatchJobResult, len(jobs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go m.matchWorker(ctx, &wg, queue, results)
	}

	go func() {
		defer close(queue)
		sendProgress(prog, matchStartedUpdate(len(jobs)))
		for _, job := range jobs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == nil {
			result.Succeeded++
			sendProgress(prog, matchCompletedUpdate(completed, len(jobs), res.Outcome.Entry))
		} else {
			result.Failed++
			sendProgress(prog, matchFailedUpdate(completed, len(jobs), res.Job, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("bulk match stopped after %d of %d: %w", completed, len(jobs), err)
	}
	return result, nil
}

func (m *Matcher) matchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan MatchJob, results chan<- MatchJobResult) {
	defer wg.Done()

	for job := range jobs {
		outcome, err := m.PerformMatch(ctx, job.SongID, job.TargetID)
		results <- MatchJobResult{Job: job, Outcome: outcome, Error: err}
	}
}

// ParseMatchJobs reads "song_id,target_id" rows. A header row, blank lines
// and lines starting with # are skipped.
func ParseMatchJobs(r io.Reader) ([]MatchJob, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var jobs []MatchJob
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected song_id,target_id", shared.ErrInvalidInput, line)
		}

		job := MatchJob{SongID: strings.TrimSpace(rec[0]), TargetID: strings.TrimSpace(rec[1])}
		if first && strings.EqualFold(job.SongID, "song_id") {
			continue
		}
		if job.SongID == "" || job.TargetID == "" {
			return nil, fmt.Errorf("%w: line %d: empty id", shared.ErrInvalidInput, line)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Entries returns the log entries recorded by the jobs that reached the provider.
func (r *BulkMatchResult) Entries() []models.MatchLogEntry {
	var out []models.MatchLogEntry
	for _, res := range r.Results {
		if res.Outcome != nil {
			out = append(out, res.Outcome.Entry)
		}
	}
	return out
}
