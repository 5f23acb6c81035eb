package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

const defaultMaxResults = 100

// ExperimentRepo is the slice of the experiment store the discovery needs:
// the most recent runs of one experiment, newest first.
type ExperimentRepo interface {
	GetRuns(ctx context.Context, experiment string, maxResults int) ([]entity.RunRecord, error)
}

// Checkpoints holds the per-experiment high-water-mark start time. It is
// advanced only by the sync worker; the lock exists for the snapshots
// served over HTTP.
type Checkpoints struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewCheckpoints() *Checkpoints {
	return &Checkpoints{last: make(map[string]int64)}
}

func (c *Checkpoints) Get(experiment string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[experiment]
}

// advance raises the mark; it never moves backwards.
func (c *Checkpoints) advance(experiment string, ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.last[experiment] {
		c.last[experiment] = ts
	}
}

// Snapshot copies the checkpoint map for the status endpoint.
func (c *Checkpoints) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]int64, len(c.last))
	for experiment, ts := range c.last {
		snapshot[experiment] = ts
	}
	return snapshot
}

// Clear forgets every mark; the next poll re-reads the full recent window.
func (c *Checkpoints) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string]int64)
}

// RunDiscovery polls one experiment at a time and filters out runs already
// seen, using the checkpoint as an exclusive lower bound on start time. A
// run sharing the exact millisecond with the mark is skipped; the bias is
// toward at-most-once processing.
type RunDiscovery struct {
	Experiments ExperimentRepo
	Checkpoints *Checkpoints
	MaxResults  int
}

func NewRunDiscovery(experiments ExperimentRepo, checkpoints *Checkpoints) *RunDiscovery {
	return &RunDiscovery{
		Experiments: experiments,
		Checkpoints: checkpoints,
		MaxResults:  defaultMaxResults,
	}
}

// Poll returns the runs newer than the experiment's checkpoint and, when
// any exist, advances the mark to the newest start time among them — never
// to wall-clock time, so runs landing between polls are not skipped.
func (d *RunDiscovery) Poll(ctx context.Context, experiment string) ([]entity.RunRecord, error) {
	maxResults := d.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	runs, err := d.Experiments.GetRuns(ctx, experiment, maxResults)
	if err != nil {
		return nil, fmt.Errorf("get runs for %q: %w", experiment, err)
	}

	since := d.Checkpoints.Get(experiment)
	latest := since
	var fresh []entity.RunRecord
	for _, run := range runs {
		if run.StartTime <= since {
			continue
		}
		fresh = append(fresh, run)
		if run.StartTime > latest {
			latest = run.StartTime
		}
	}

	if len(fresh) > 0 {
		d.Checkpoints.advance(experiment, latest)
		log.Printf("experiment %q: %d new run(s), checkpoint now %d", experiment, len(fresh), latest)
	}
	return fresh, nil
}
