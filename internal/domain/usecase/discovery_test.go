package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

type fakeExperimentRepo struct {
	runs map[string][]entity.RunRecord
	err  error
}

func (f *fakeExperimentRepo) GetRuns(_ context.Context, experiment string, _ int) ([]entity.RunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[experiment], nil
}

func run(id string, startTime int64) entity.RunRecord {
	return entity.RunRecord{RunID: id, StartTime: startTime}
}

func TestPollExclusiveBoundary(t *testing.T) {
	repo := &fakeExperimentRepo{runs: map[string][]entity.RunRecord{
		"exp": {run("c", 3000), run("b", 2000), run("a", 1000)},
	}}
	discovery := NewRunDiscovery(repo, NewCheckpoints())
	discovery.Checkpoints.advance("exp", 2000)

	fresh, err := discovery.Poll(context.Background(), "exp")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(fresh) != 1 || fresh[0].RunID != "c" {
		t.Fatalf("fresh = %v, want only run c (start time 2000 is not newer than mark 2000)", fresh)
	}
	if got := discovery.Checkpoints.Get("exp"); got != 3000 {
		t.Errorf("checkpoint = %d, want 3000", got)
	}
}

func TestPollFirstCycleSeesEverything(t *testing.T) {
	repo := &fakeExperimentRepo{runs: map[string][]entity.RunRecord{
		"exp": {run("b", 2000), run("a", 1000)},
	}}
	discovery := NewRunDiscovery(repo, NewCheckpoints())

	fresh, err := discovery.Poll(context.Background(), "exp")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("fresh = %v, want both runs on first poll", fresh)
	}
}

func TestPollSecondPollIsIdempotent(t *testing.T) {
	repo := &fakeExperimentRepo{runs: map[string][]entity.RunRecord{
		"exp": {run("b", 2000), run("a", 1000)},
	}}
	discovery := NewRunDiscovery(repo, NewCheckpoints())

	if _, err := discovery.Poll(context.Background(), "exp"); err != nil {
		t.Fatalf("first Poll() error = %v", err)
	}
	fresh, err := discovery.Poll(context.Background(), "exp")
	if err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}
	if len(fresh) != 0 {
		t.Errorf("second poll returned %v, want no runs", fresh)
	}
}

func TestPollNoFreshRunsKeepsCheckpoint(t *testing.T) {
	repo := &fakeExperimentRepo{runs: map[string][]entity.RunRecord{}}
	discovery := NewRunDiscovery(repo, NewCheckpoints())
	discovery.Checkpoints.advance("exp", 5000)

	if _, err := discovery.Poll(context.Background(), "exp"); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got := discovery.Checkpoints.Get("exp"); got != 5000 {
		t.Errorf("checkpoint = %d, want unchanged 5000", got)
	}
}

func TestPollAdvancesToMaxNotLast(t *testing.T) {
	// Order from the store is not guaranteed; the mark must track the
	// maximum start time, not the last element.
	repo := &fakeExperimentRepo{runs: map[string][]entity.RunRecord{
		"exp": {run("a", 1000), run("c", 3000), run("b", 2000)},
	}}
	discovery := NewRunDiscovery(repo, NewCheckpoints())

	if _, err := discovery.Poll(context.Background(), "exp"); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got := discovery.Checkpoints.Get("exp"); got != 3000 {
		t.Errorf("checkpoint = %d, want 3000", got)
	}
}

func TestPollError(t *testing.T) {
	repo := &fakeExperimentRepo{err: errors.New("mlflow down")}
	discovery := NewRunDiscovery(repo, NewCheckpoints())

	if _, err := discovery.Poll(context.Background(), "exp"); err == nil {
		t.Fatal("Poll() expected error")
	}
	if got := discovery.Checkpoints.Get("exp"); got != 0 {
		t.Errorf("checkpoint = %d, want 0 after failed poll", got)
	}
}

func TestCheckpointsNeverMoveBackwards(t *testing.T) {
	cp := NewCheckpoints()
	cp.advance("exp", 3000)
	cp.advance("exp", 1000)
	if got := cp.Get("exp"); got != 3000 {
		t.Errorf("checkpoint = %d, want 3000", got)
	}
}

func TestCheckpointsClear(t *testing.T) {
	cp := NewCheckpoints()
	cp.advance("exp", 3000)
	cp.Clear()
	if got := cp.Get("exp"); got != 0 {
		t.Errorf("checkpoint after clear = %d, want 0", got)
	}
}
