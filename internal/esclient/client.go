// Package esclient defines the cluster client capability spec.md treats
// as an opaque external collaborator (§1, §6): info, cluster health,
// index existence/create/delete, and bulk indexing. Only the interface
// and its two error kinds are normative; HTTPClient in http.go is a
// minimal concrete stand-in so the module is runnable end to end
// without a generated REST client from the retrieval pack (see
// DESIGN.md for why no pack dependency was used here).
package esclient

import "context"

// HealthStatus is the cluster.health "status" field (spec.md §4.H):
// red < yellow < green. The zero value is the empty/unknown status.
type HealthStatus string

const (
	StatusRed    HealthStatus = "red"
	StatusYellow HealthStatus = "yellow"
	StatusGreen  HealthStatus = "green"
)

// rank orders statuses for the "at least as good as" comparison the
// health gate needs. Unknown/empty statuses rank below red.
func (s HealthStatus) rank() int {
	switch s {
	case StatusRed:
		return 1
	case StatusYellow:
		return 2
	case StatusGreen:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as good or better than other in the
// red < yellow < green order.
func (s HealthStatus) AtLeast(other HealthStatus) bool {
	return s.rank() > 0 && s.rank() >= other.rank()
}

// Health is the result of a cluster.health call.
type Health struct {
	Status           HealthStatus
	RelocatingShards int
}

// Info is the result of an info() call.
type Info struct {
	VersionNumber string
}

// BulkResult is the result of a bulk(...) call.
type BulkResult struct {
	Errors bool
	Items  int
}

// Client is the cluster client capability consumed by runners and by
// the Index Setup / Cluster Health Gate components (spec.md §6).
// Implementations manage their own connection pooling; the handle
// itself is treated as shared read-only state (spec.md §5).
type Client interface {
	Info(ctx context.Context) (Info, error)
	ClusterHealth(ctx context.Context) (Health, error)

	IndicesExists(ctx context.Context, index string) (bool, error)
	IndicesCreate(ctx context.Context, index string, body map[string]interface{}) error
	IndicesDelete(ctx context.Context, index string) error

	Bulk(ctx context.Context, index string, body []byte) (BulkResult, error)
	Search(ctx context.Context, index string, body map[string]interface{}) (map[string]interface{}, error)
}

// ConnectionError represents a transport-level failure with no HTTP
// status available (spec.md §4.D, §7 category 1): DNS failure,
// connection refused, timeout before a response was read.
type ConnectionError struct {
	Msg string
}

func (e *ConnectionError) Error() string { return e.Msg }

// StatusError represents an HTTP-status-level failure (spec.md §4.D,
// §7 category 2): the server responded, but with an error status.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string { return e.Msg }
