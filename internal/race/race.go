// Package race wires the Param Source Registry, Allocator, Scheduler,
// Runner, Executor, Coordinator and Aggregator together into one
// runnable race, driven by a loaded config.RaceConfig.
package race

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Tom-Deng/rally/internal/config"
	"github.com/Tom-Deng/rally/internal/driver"
	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/track"
)

// Report is the outcome of one race run.
type Report struct {
	RaceID      string
	Throughput  []driver.ThroughputPoint
	ClientCount int
}

// Run prepares indices, waits on the cluster health gate, then executes
// cfg's schedule to completion against client, returning the merged
// throughput report. Each call gets a fresh race ID (spec.md §6, "every
// race run is independently identifiable for later comparison").
func Run(ctx context.Context, cfg *config.RaceConfig, client esclient.Client) (Report, error) {
	raceID := uuid.NewString()
	log := logrus.WithField("race_id", raceID)

	if len(cfg.Indices) > 0 {
		log.Info("preparing indices")
		defs := make([]driver.IndexDefinition, 0, len(cfg.Indices))
		for _, idx := range cfg.Indices {
			types := make([]driver.TypeMapping, 0, len(idx.Types))
			for _, ts := range idx.Types {
				types = append(types, driver.TypeMapping{Name: ts.Name, Mapping: ts.Mapping})
			}
			defs = append(defs, driver.IndexDefinition{
				Name: idx.Name, AutoManaged: idx.AutoManaged, Settings: idx.Settings, Types: types,
			})
		}
		if err := driver.NewIndexSetup(client).Prepare(ctx, defs); err != nil {
			return Report{}, fmt.Errorf("race %s: index setup: %w", raceID, err)
		}
	}

	if cfg.HealthGate != nil {
		log.Info("waiting for cluster health")
		interval := time.Duration(cfg.HealthGate.PollIntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = time.Second
		}
		gate := driver.NewHealthGate(client, esclient.HealthStatus(cfg.HealthGate.ExpectedStatus), interval, cfg.HealthGate.MaxAttempts)
		if err := gate.Wait(ctx); err != nil {
			return Report{}, fmt.Errorf("race %s: health gate: %w", raceID, err)
		}
	}

	items, err := buildSchedule(cfg.Schedule)
	if err != nil {
		return Report{}, fmt.Errorf("race %s: building schedule: %w", raceID, err)
	}

	alloc := driver.NewAllocator(items)
	log.WithField("clients", alloc.Clients).Info("starting race")

	coord := driver.NewCoordinator(alloc, client)
	if err := coord.Run(ctx); err != nil {
		return Report{}, fmt.Errorf("race %s: %w", raceID, err)
	}

	points := driver.NewAggregator().Merge(coord.Samplers...)
	log.WithField("samples", len(points)).Info("race complete")

	return Report{RaceID: raceID, Throughput: points, ClientCount: alloc.Clients}, nil
}

func buildSchedule(items []config.ItemSpec) ([]track.Item, error) {
	out := make([]track.Item, 0, len(items))
	for i, item := range items {
		switch {
		case item.Task != nil:
			out = append(out, buildTask(*item.Task))
		case len(item.Parallel) > 0:
			tasks := make([]track.Task, 0, len(item.Parallel))
			for _, ts := range item.Parallel {
				tasks = append(tasks, buildTask(ts))
			}
			out = append(out, track.Parallel{Tasks: tasks, Clients: item.Clients})
		default:
			return nil, fmt.Errorf("schedule[%d]: neither task nor parallel set", i)
		}
	}
	return out, nil
}

func buildTask(ts config.TaskSpec) track.Task {
	op := track.Operation{
		Name:        ts.Operation,
		Type:        track.OperationType(ts.OperationType),
		ParamSource: ts.ParamSource,
		Params:      ts.Params,
	}
	task := track.NewTask(op)
	task.WarmupIterations = ts.WarmupIterations
	task.Iterations = ts.Iterations
	task.WarmupTimePeriod = ts.WarmupTimePeriod
	task.TimePeriod = ts.TimePeriod
	if ts.Clients > 0 {
		task.Clients = ts.Clients
	}
	return task
}
