package driver

import "sort"

// ThroughputPoint is one derived throughput measurement for one
// operation (spec.md §4.I).
type ThroughputPoint struct {
	OperationName string
	SampleType    SampleType
	AbsoluteTime  float64 // epoch seconds of the triggering sample
	RelativeTime  float64 // seconds since this client's task started
	OpsPerSecond  float64
	Unit          string
}

// Aggregator merges Samplers from every client that ran a race and
// derives per-operation throughput over time (spec.md §4.I). It
// partitions by operation, sorts each partition by absolute time, and
// walks it once, accumulating a running total of ops across every
// sample regardless of sample_type, emitting one throughput point per
// whole-second bucket (or whenever the sample_type changes, so a
// warmup-to-normal transition always starts its own point).
type Aggregator struct{}

// NewAggregator returns an Aggregator. It carries no state: Merge is a
// pure function of the samples it is given.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Merge combines every client's recorded samples into a single
// timeline per operation and computes its throughput series. The
// running ops total is never reset at a sample_type boundary: a
// warmup sample's ops still count toward the cumulative total used by
// the first normal point (spec.md §4.I, grounded on
// original_source/tests/driver/driver_test.py's
// test_different_sample_types, where a single warmup sample of 3000
// ops is followed 0.5s later by a normal sample of 2500 ops and the
// normal point's rate is 5500/1.5 = 3666.67, not 2500/0.5).
func (a *Aggregator) Merge(samplers ...*Sampler) []ThroughputPoint {
	all := make([]Sample, 0)
	for _, s := range samplers {
		all = append(all, s.Samples()...)
	}

	byOp := make(map[string][]Sample)
	for _, s := range all {
		byOp[s.OperationName] = append(byOp[s.OperationName], s)
	}

	var out []ThroughputPoint
	for opName, samples := range byOp {
		sort.Slice(samples, func(i, j int) bool {
			return samples[i].AbsoluteTime < samples[j].AbsoluteTime
		})
		out = append(out, cumulativeThroughput(opName, samples)...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OperationName != out[j].OperationName {
			return out[i].OperationName < out[j].OperationName
		}
		return out[i].AbsoluteTime < out[j].AbsoluteTime
	})
	return out
}

// cumulativeThroughput walks samples (already sorted by absolute
// time), keeping a running total of TotalOps across the whole series,
// and emits one ThroughputPoint each time the sample's whole second
// differs from the last emitted point's whole second, or its
// sample_type differs from the last emitted point's sample_type. The
// rate at an emitted point is the cumulative ops so far divided by the
// elapsed time since one second before the series' first sample
// (spec.md §4.I: "total_ops / (absolute_time - task_start)", where
// task_start here is first_sample_time - 1s, matching the original's
// calculate_global_throughput).
func cumulativeThroughput(opName string, samples []Sample) []ThroughputPoint {
	if len(samples) == 0 {
		return nil
	}

	firstTime := samples[0].AbsoluteTime
	cumulativeOps := 0
	points := make([]ThroughputPoint, 0, len(samples))

	hasEmitted := false
	var lastBucket float64
	var lastType SampleType

	for _, s := range samples {
		cumulativeOps += s.TotalOps
		bucket := wholeSecond(s.AbsoluteTime)

		emit := !hasEmitted || bucket != lastBucket || s.SampleType != lastType
		if !emit {
			continue
		}

		denom := s.AbsoluteTime - firstTime + 1
		points = append(points, ThroughputPoint{
			OperationName: opName,
			SampleType:    s.SampleType,
			AbsoluteTime:  s.AbsoluteTime,
			RelativeTime:  s.RelativeTime,
			OpsPerSecond:  float64(cumulativeOps) / denom,
			Unit:          s.TotalOpsUnit,
		})

		hasEmitted = true
		lastBucket = bucket
		lastType = s.SampleType
	}

	return points
}

func wholeSecond(t float64) float64 {
	return float64(int64(t))
}
