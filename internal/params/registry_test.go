package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSource mirrors the DriverTestParamSource helper from the
// original driver_test.py: it hands back itself on partition, reports
// a configurable size, and returns a fixed params map.
type testSource struct {
	size   int64
	fields map[string]interface{}
}

func (t *testSource) Partition(i, n int) Source { return t }
func (t *testSource) Size() int64               { return t.size }
func (t *testSource) Params() map[string]interface{} {
	return t.fields
}

func TestRegister_IsIdempotentUnderSameName(t *testing.T) {
	calls := 0
	Register("idempotent-test-source", func(p map[string]interface{}) Source {
		calls++
		return &testSource{size: 1}
	})
	Register("idempotent-test-source", func(p map[string]interface{}) Source {
		calls++
		return &testSource{size: 2}
	})

	src, err := New("idempotent-test-source", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.Size(), "second Register call must not replace the first factory")
	assert.Equal(t, 1, calls)
}

func TestNew_UnknownNameReturnsError(t *testing.T) {
	_, err := New("no-such-source", nil)
	assert.Error(t, err)
}

func TestMustRegister_PanicsOnCollision(t *testing.T) {
	MustRegister("must-register-once", func(map[string]interface{}) Source { return &testSource{} })
	assert.Panics(t, func() {
		MustRegister("must-register-once", func(map[string]interface{}) Source { return &testSource{} })
	})
}

func TestBoundedSource_PartitionSplitsSizeAcrossShards(t *testing.T) {
	src, err := New("bounded", map[string]interface{}{"size": 5})
	require.NoError(t, err)

	p0 := src.Partition(0, 2)
	p1 := src.Partition(1, 2)

	// 5 split across 2 shards: shard 0 gets the remainder (3), shard 1 gets 2.
	assert.Equal(t, int64(3), p0.Size())
	assert.Equal(t, int64(2), p1.Size())
}

func TestBoundedSource_ParamsIncludesInvocationCounter(t *testing.T) {
	src, err := New("bounded", map[string]interface{}{"size": 3, "op": "index"})
	require.NoError(t, err)

	first := src.Params()
	second := src.Params()

	assert.Equal(t, int64(1), first["invocation"])
	assert.Equal(t, int64(2), second["invocation"])
	assert.Equal(t, "index", first["op"])
}
