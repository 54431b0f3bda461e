package driver

import "sync"

// Sample is one executed invocation's record (spec.md §3 "Sample").
type Sample struct {
	ClientID       int
	AbsoluteTime   float64 // epoch seconds
	RelativeTime   float64 // seconds since client start
	OperationName  string
	SampleType     SampleType
	RequestMeta    map[string]interface{}
	LatencyMs      float64
	ServiceTimeMs  float64
	TotalOps       int
	TotalOpsUnit   string
	TotalOpsSoFar  int
	Progress       float64
}

// Sampler is a thread-safe, append-only collector of Samples for one
// client (spec.md §4.E). In practice exactly one Executor goroutine
// owns and appends to a Sampler, but Add is safe under concurrent
// producers regardless, and Samples() is safe to call once the owning
// client has parked at its join point (spec.md §5 "happens-before
// established by the barrier").
type Sampler struct {
	mu      sync.Mutex
	samples []Sample
}

// NewSampler returns an empty Sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// Add appends sample, preserving insertion order.
func (s *Sampler) Add(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
}

// Samples returns a snapshot copy of the collected samples in
// insertion order.
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
