package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/raceerr"
)

func TestExecuteSingle_Nil(t *testing.T) {
	res, err := ExecuteSingle("r", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalOps)
	assert.Equal(t, "ops", res.Unit)
	assert.Equal(t, map[string]interface{}{"success": true}, res.Meta)
}

func TestExecuteSingle_Weighted(t *testing.T) {
	res, err := ExecuteSingle("r", Weighted{N: 500, Unit: "MB"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, res.TotalOps)
	assert.Equal(t, "MB", res.Unit)
}

func TestExecuteSingle_DetailedMap(t *testing.T) {
	raw := map[string]interface{}{
		"weight": 50, "unit": "docs", "http-status": 200, "some-custom-meta-data": "valid",
	}
	res, err := ExecuteSingle("r", raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, res.TotalOps)
	assert.Equal(t, "docs", res.Unit)
	assert.Equal(t, map[string]interface{}{
		"http-status": 200, "some-custom-meta-data": "valid", "success": true,
	}, res.Meta)
}

func TestExecuteSingle_ConnectionError(t *testing.T) {
	res, err := ExecuteSingle("r", nil, &esclient.ConnectionError{Msg: "no route to host"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalOps)
	assert.Equal(t, "ops", res.Unit)
	assert.Equal(t, map[string]interface{}{
		"error-description": "no route to host", "success": false,
	}, res.Meta)
}

func TestExecuteSingle_HTTPStatusError(t *testing.T) {
	res, err := ExecuteSingle("r", nil, &esclient.StatusError{Status: 404, Msg: "not found"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalOps)
	assert.Equal(t, map[string]interface{}{
		"http-status": 404, "error-description": "not found", "success": false,
	}, res.Meta)
}

func TestRequireKeys_MissingKeyProducesCanonicalMessage(t *testing.T) {
	err := requireKeys("bulk", map[string]interface{}{"index": "logs"}, "index", "body")
	require.Error(t, err)
	var sse *raceerr.SystemSetupError
	require.ErrorAs(t, err, &sse)
	assert.Equal(t, "Cannot execute [bulk]. Provided parameters are: ['index']. Error: ['body'].", err.Error())
}

func TestFor_PanicsOnUnknownOperationType(t *testing.T) {
	assert.Panics(t, func() { For("no-such-type") })
}
