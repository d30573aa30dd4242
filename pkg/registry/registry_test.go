package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{"recompute-supplier-rankings", "get-current-rankings", "get-supplier-trend"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.Equal(t, "completed", a.ImplementationStatus)
	}
}

func TestInputSchema(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	schema, err := reg.InputSchema("get-supplier-trend")
	require.NoError(t, err)
	assert.False(t, schema.ValidateJSON(`{}`).Valid)
	assert.True(t, schema.ValidateJSON(`{"supplierId":"A","windowDays":7}`).Valid)

	_, err = reg.InputSchema("unknown-task")
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
	}{
		{"bad id", []Activity{{ID: "Recompute", TaskType: "a"}}},
		{"duplicate id", []Activity{{ID: "ranking.supplier.list", TaskType: "a"}, {ID: "ranking.supplier.list", TaskType: "b"}}},
		{"duplicate task type", []Activity{{ID: "ranking.supplier.list", TaskType: "a"}, {ID: "ranking.supplier.trend", TaskType: "a"}}},
		{"missing task type", []Activity{{ID: "ranking.supplier.list"}}},
		{"bad timeout", []Activity{{ID: "ranking.supplier.list", TaskType: "a", Timeout: "soon"}}},
		{"negative retries", []Activity{{ID: "ranking.supplier.list", TaskType: "a", Retries: -1}}},
		{"unknown error code", []Activity{{ID: "ranking.supplier.list", TaskType: "a", ErrorCodes: []string{"TIMEOUT"}}}},
		{"bad schema", []Activity{{ID: "ranking.supplier.list", TaskType: "a", InputSchema: map[string]interface{}{"type": 5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: tt.activities}
			assert.Error(t, reg.Validate())
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, defaultRegistry, 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Activities, 3)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
