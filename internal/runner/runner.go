// Package runner implements the Runner Capability (spec.md §4.D): a
// scoped, per-operation callable resolved from a registry by
// operation type, and the execute_single normalisation that turns
// whatever shape a runner returns into (total_ops, unit, meta).
package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/raceerr"
	"github.com/Tom-Deng/rally/internal/track"
)

// Result is the normalised return shape of one invocation.
type Result struct {
	TotalOps int
	Unit     string
	Meta     map[string]interface{}
}

// Weighted is the "(n, unit)" return shape from spec.md §4.D's table —
// a runner reporting a weight and a unit with no other metadata.
type Weighted struct {
	N    int
	Unit string
}

// Runner is a scoped per-operation capability. Acquire is called once
// per invocation by the executor; the returned Invocation's Release is
// guaranteed to run on every exit path, including when Execute returns
// an error (spec.md §9 "Scoped resources").
type Runner interface {
	Acquire(ctx context.Context) (Invocation, error)
}

// Invocation is the acquired, invocation-scoped handle returned by a
// Runner. Execute is called exactly once; Release must be deferred by
// the caller immediately after Acquire succeeds.
type Invocation interface {
	// Execute performs the operation. Its return value is one of the
	// shapes tabulated in spec.md §4.D: nil, (n, unit), a detail map, or
	// an error from esclient (ConnectionError/StatusError) or any other
	// error which propagates unchanged.
	Execute(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error)
	Release()
}

// Func adapts a plain function into a Runner/Invocation pair with a
// no-op Release — the common case for stateless runners, mirroring the
// teacher's factory-by-name pattern (sim/scheduler.go's NewScheduler).
type Func func(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error)

type funcInvocation struct {
	f Func
}

func (fi funcInvocation) Execute(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error) {
	return fi.f(ctx, client, params)
}
func (fi funcInvocation) Release() {}

func (f Func) Acquire(ctx context.Context) (Invocation, error) {
	return funcInvocation{f: f}, nil
}

var registry = map[track.OperationType]Runner{
	track.OperationBulk:          Func(bulkRunner),
	track.OperationSearch:        Func(searchRunner),
	track.OperationIndicesStats:  Func(indicesStatsRunner),
	track.OperationClusterHealth: Func(clusterHealthRunner),
}

// For resolves the Runner registered for opType. Panics on an unknown
// operation type: operation types are a closed, compile-time-known set
// (track.OperationType), so an unknown value here is a caller bug, not
// a runtime condition the coordinator should recover from — matching
// the teacher's NewScheduler(name) panic-on-unknown-name convention.
func For(opType track.OperationType) Runner {
	r, ok := registry[opType]
	if !ok {
		panic(fmt.Sprintf("runner: no runner registered for operation type %q", opType))
	}
	return r
}

// requireKeys returns an error if any of keys is missing from params.
// On failure it reports the FIRST missing key, with the provided keys
// sorted alphabetically — Go maps have no insertion order, so the
// keys are sorted to keep the message deterministic across runs. This
// is flagged as an Open Question resolution in DESIGN.md: spec.md's
// literal message format assumes Python's insertion-ordered dict,
// which has no exact Go map equivalent.
func requireKeys(runnerName string, params map[string]interface{}, keys ...string) error {
	provided := make([]string, 0, len(params))
	for k := range params {
		provided = append(provided, k)
	}
	sort.Strings(provided)
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return raceerr.NewSystemSetupError(runnerName, provided, k)
		}
	}
	return nil
}

func bulkRunner(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error) {
	if err := requireKeys("bulk", params, "index", "body"); err != nil {
		return nil, err
	}
	index := params["index"].(string)
	body, _ := params["body"].([]byte)
	res, err := client.Bulk(ctx, index, body)
	if err != nil {
		return nil, err
	}
	itemCount := res.Items
	if itemCount == 0 {
		itemCount = 1
	}
	return map[string]interface{}{"weight": itemCount, "unit": "docs", "success": !res.Errors}, nil
}

func searchRunner(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error) {
	if err := requireKeys("search", params, "index"); err != nil {
		return nil, err
	}
	index := params["index"].(string)
	body, _ := params["body"].(map[string]interface{})
	if _, err := client.Search(ctx, index, body); err != nil {
		return nil, err
	}
	return nil, nil
}

func indicesStatsRunner(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error) {
	if _, err := client.ClusterHealth(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func clusterHealthRunner(ctx context.Context, client esclient.Client, params map[string]interface{}) (interface{}, error) {
	if _, err := client.ClusterHealth(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// ExecuteSingle normalises a runner's return into (total_ops, unit,
// meta), per the table in spec.md §4.D. raw and execErr are exactly
// what Invocation.Execute returned.
func ExecuteSingle(runnerName string, raw interface{}, execErr error) (Result, error) {
	if execErr != nil {
		switch e := execErr.(type) {
		case *esclient.ConnectionError:
			return Result{TotalOps: 0, Unit: "ops", Meta: map[string]interface{}{
				"error-description": e.Error(), "success": false,
			}}, nil
		case *esclient.StatusError:
			return Result{TotalOps: 0, Unit: "ops", Meta: map[string]interface{}{
				"http-status": e.Status, "error-description": e.Error(), "success": false,
			}}, nil
		default:
			// SystemSetupError, any other unexpected error: propagate.
			return Result{}, execErr
		}
	}

	switch v := raw.(type) {
	case nil:
		return Result{TotalOps: 1, Unit: "ops", Meta: map[string]interface{}{"success": true}}, nil

	case Weighted:
		return Result{TotalOps: v.N, Unit: v.Unit, Meta: map[string]interface{}{"success": true}}, nil

	case map[string]interface{}:
		meta := make(map[string]interface{}, len(v))
		weight := 1
		unit := "ops"
		for k, val := range v {
			switch k {
			case "weight":
				if n, ok := toInt(val); ok {
					weight = n
				}
			case "unit":
				if u, ok := val.(string); ok {
					unit = u
				}
			default:
				meta[k] = val
			}
		}
		meta["success"] = true
		return Result{TotalOps: weight, Unit: unit, Meta: meta}, nil

	default:
		return Result{}, fmt.Errorf("runner %q: unrecognised return shape %T", runnerName, raw)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
