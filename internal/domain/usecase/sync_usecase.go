package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
	"github.com/Taverna-Hub/Projeto-AVD/pkg/utils"
)

// StatusTracker mirrors the monitor state into an external store so the
// HTTP surface can read it without touching the worker. Optional.
type StatusTracker interface {
	SetRunning(ctx context.Context, running bool) error
	SaveCycle(ctx context.Context, summary entity.CycleSummary) error
}

// OutcomeRepo persists per-run outcomes as an audit log. Optional.
type OutcomeRepo interface {
	SaveOutcome(ctx context.Context, outcome *entity.RunOutcome) error
}

// Publisher emits one message per processed run. Optional.
type Publisher interface {
	Publish(ctx context.Context, body json.RawMessage) error
}

// SyncConfig tunes the pipeline; zero values fall back to the defaults the
// monitor has always used.
type SyncConfig struct {
	DataPrefix string
	ColumnMap  map[string]string
	BatchSize  int
	MaxRecords int
	MaxResults int
	RunDelay   time.Duration
	ChunkDelay time.Duration
}

const (
	defaultMaxRecords = 1000
	defaultRunDelay   = 2 * time.Second
)

// SyncUseCase drives the per-run pipeline
// resolve → device → data → transform → deliver and the polling loop around
// it. All mutable state (device cache, checkpoints) is owned here and
// touched by a single worker; a failure in one run or one experiment never
// stops the cycle.
type SyncUseCase struct {
	discovery *RunDiscovery
	directory *DeviceDirectory
	locator   *DataLocator
	delivery  *DeliveryEngine
	storage   ObjectStorage

	tracker   StatusTracker
	outcomes  OutcomeRepo
	publisher Publisher

	cfg SyncConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewSyncUseCase(
	experiments ExperimentRepo,
	devices DeviceRepo,
	storage ObjectStorage,
	pusher TelemetryPusher,
	tracker StatusTracker,
	outcomes OutcomeRepo,
	publisher Publisher,
	cfg SyncConfig,
) *SyncUseCase {
	if cfg.ColumnMap == nil {
		cfg.ColumnMap = DefaultColumnMap
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	if cfg.RunDelay <= 0 {
		cfg.RunDelay = defaultRunDelay
	}

	discovery := NewRunDiscovery(experiments, NewCheckpoints())
	if cfg.MaxResults > 0 {
		discovery.MaxResults = cfg.MaxResults
	}

	return &SyncUseCase{
		discovery: discovery,
		directory: NewDeviceDirectory(devices),
		locator:   &DataLocator{Storage: storage, Prefix: cfg.DataPrefix},
		delivery:  NewDeliveryEngine(pusher, cfg.BatchSize, cfg.ChunkDelay),
		storage:   storage,
		tracker:   tracker,
		outcomes:  outcomes,
		publisher: publisher,
		cfg:       cfg,
	}
}

// SyncOnce runs a single poll cycle across the given experiments and
// returns the aggregated outcomes. A failed poll skips that experiment for
// this cycle only.
func (u *SyncUseCase) SyncOnce(ctx context.Context, experiments []string) entity.CycleSummary {
	summary := entity.CycleSummary{
		CycleID:   uuid.New().String(),
		StartedAt: time.Now(),
	}

	for _, experiment := range experiments {
		if u.stopRequested() {
			break
		}

		runs, err := u.discovery.Poll(ctx, experiment)
		if err != nil {
			log.Printf("poll %q failed, skipping this cycle: %v", experiment, err)
			continue
		}

		for i, run := range runs {
			if u.stopRequested() {
				break
			}

			outcome := u.processRun(ctx, run)
			outcome.CycleID = summary.CycleID
			u.recordOutcome(ctx, &outcome)

			summary.Outcomes = append(summary.Outcomes, outcome)
			summary.Processed++
			if outcome.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}

			if i < len(runs)-1 {
				u.pause(u.cfg.RunDelay)
			}
		}
	}

	summary.FinishedAt = time.Now()
	if summary.Processed > 0 {
		log.Printf("cycle %s: %d/%d run(s) succeeded", summary.CycleID, summary.Succeeded, summary.Processed)
	}

	if u.tracker != nil {
		if err := u.tracker.SaveCycle(ctx, summary); err != nil {
			log.Printf("save cycle summary: %v", err)
		}
	}
	return summary
}

// processRun walks one run through the pipeline. Every early exit is a
// failed outcome for that run only.
func (u *SyncUseCase) processRun(ctx context.Context, run entity.RunRecord) entity.RunOutcome {
	outcome := entity.RunOutcome{
		RunID:     run.RunID,
		RunName:   run.RunName,
		CreatedAt: time.Now(),
	}

	station := ResolveStation(run)
	if station == "" {
		outcome.Error = "station name not resolvable from run metadata"
		log.Printf("run %s: %s", run.RunID, outcome.Error)
		return outcome
	}
	outcome.StationName = station
	log.Printf("run %s: syncing station %s", run.RunID, station)

	device, err := u.directory.GetOrCreate(ctx, station)
	if err != nil {
		outcome.Error = err.Error()
		log.Printf("run %s: %v", run.RunID, err)
		return outcome
	}
	outcome.DeviceFound = true

	key, err := u.locator.Find(ctx, station, modelQualifier(run))
	if err != nil {
		outcome.Error = err.Error()
		if !errors.Is(err, ErrDataNotFound) {
			log.Printf("run %s: %v", run.RunID, err)
		}
		return outcome
	}
	outcome.DataFound = true

	records, err := u.loadRecords(ctx, key)
	if err != nil {
		outcome.Error = fmt.Sprintf("load %s: %v", key, err)
		log.Printf("run %s: %s", run.RunID, outcome.Error)
		return outcome
	}
	if len(records) == 0 {
		outcome.Error = fmt.Sprintf("dataset %s produced no telemetry records", key)
		return outcome
	}
	if len(records) > u.cfg.MaxRecords {
		log.Printf("run %s: dataset has %d records, sending the last %d", run.RunID, len(records), u.cfg.MaxRecords)
		records = records[len(records)-u.cfg.MaxRecords:]
	}

	result, err := u.delivery.Deliver(ctx, device.Token, records)
	outcome.RecordsSent = result.Success
	outcome.RecordsFailed = result.Failed
	outcome.Success = result.Success > 0
	outcome.Complete = result.Failed == 0
	if err != nil {
		outcome.Error = err.Error()
	}
	log.Printf("run %s: delivered %d/%d record(s) to %q", run.RunID, result.Success, result.Total, device.Name)
	return outcome
}

func (u *SyncUseCase) loadRecords(ctx context.Context, key string) ([]entity.TelemetryRecord, error) {
	obj, err := u.storage.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	columns, rows, err := utils.ParseCSV(obj)
	if err != nil {
		return nil, err
	}
	ds := &entity.Dataset{Columns: columns, Rows: rows}
	return Transform(ds, u.cfg.ColumnMap), nil
}

// modelQualifier picks the optional model-variant token used to choose
// among several result files of the same station.
func modelQualifier(run entity.RunRecord) string {
	if model := run.Params["model"]; model != "" {
		return model
	}
	return run.Tags["model"]
}

// recordOutcome fans the outcome out to the audit log and the event
// exchange; both are best effort and never fail the run.
func (u *SyncUseCase) recordOutcome(ctx context.Context, outcome *entity.RunOutcome) {
	if u.outcomes != nil {
		if err := u.outcomes.SaveOutcome(ctx, outcome); err != nil {
			log.Printf("save outcome for run %s: %v", outcome.RunID, err)
		}
	}
	if u.publisher != nil {
		body, err := utils.ToRawMessage(outcome)
		if err != nil {
			log.Printf("encode outcome for run %s: %v", outcome.RunID, err)
			return
		}
		if err := u.publishWithRetry(ctx, body); err != nil {
			log.Printf("publish outcome for run %s: %v", outcome.RunID, err)
		}
	}
}

func (u *SyncUseCase) publishWithRetry(ctx context.Context, msg json.RawMessage) error {
	var (
		baseDelay   = 500 * time.Millisecond
		maxDelay    = 10 * time.Second
		maxAttempts = 3
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := u.publisher.Publish(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > maxDelay {
			backoff = maxDelay
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.New("publish canceled by context")
		}
	}
	return lastErr
}

// Start launches the continuous loop: one SyncOnce per interval until Stop.
// The loop is a single goroutine; there is no intra-cycle parallelism.
func (u *SyncUseCase) Start(experiments []string, interval time.Duration) error {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return errors.New("sync loop already running")
	}
	u.running = true
	u.stopCh = make(chan struct{})
	stopCh := u.stopCh
	u.mu.Unlock()

	u.trackRunning(true)
	log.Printf("sync loop started: experiments=%v interval=%s", experiments, interval)

	go func() {
		defer func() {
			u.mu.Lock()
			u.running = false
			u.mu.Unlock()
			u.trackRunning(false)
			log.Println("sync loop stopped")
		}()

		for {
			u.SyncOnce(context.Background(), experiments)

			select {
			case <-stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

// Stop requests a halt. It is cooperative: an in-flight run completes
// before the loop exits. Returns false when no loop is running.
func (u *SyncUseCase) Stop() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running || u.stopCh == nil {
		return false
	}
	select {
	case <-u.stopCh:
	default:
		close(u.stopCh)
	}
	return true
}

// Running reports whether the continuous loop is active.
func (u *SyncUseCase) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// SyncStatus is the snapshot served by the status endpoint.
type SyncStatus struct {
	Running         bool             `json:"running"`
	Checkpoints     map[string]int64 `json:"checkpoints"`
	DeviceCacheSize int              `json:"device_cache_size"`
}

func (u *SyncUseCase) Status() SyncStatus {
	return SyncStatus{
		Running:         u.Running(),
		Checkpoints:     u.discovery.Checkpoints.Snapshot(),
		DeviceCacheSize: u.directory.CacheSize(),
	}
}

// CachedDevices exposes the directory cache for the admin endpoint.
func (u *SyncUseCase) CachedDevices() []entity.Device {
	return u.directory.CachedDevices()
}

// ClearCaches drops the device cache and every checkpoint.
func (u *SyncUseCase) ClearCaches() {
	u.directory.ClearCache()
	u.discovery.Checkpoints.Clear()
}

func (u *SyncUseCase) stopRequested() bool {
	u.mu.Lock()
	stopCh := u.stopCh
	u.mu.Unlock()
	if stopCh == nil {
		return false
	}
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

// pause sleeps between runs but wakes early on a stop request.
func (u *SyncUseCase) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	u.mu.Lock()
	stopCh := u.stopCh
	u.mu.Unlock()
	if stopCh == nil {
		time.Sleep(d)
		return
	}
	select {
	case <-stopCh:
	case <-time.After(d):
	}
}

func (u *SyncUseCase) trackRunning(running bool) {
	if u.tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.tracker.SetRunning(ctx, running); err != nil {
		log.Printf("track running state: %v", err)
	}
}
