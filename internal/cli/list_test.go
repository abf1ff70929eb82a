package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsim/internal/store"
)

func TestList_Programs(t *testing.T) {
	out, _, err := execute(NewListCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	assert.Contains(t, out, "PROGRAM")
	for _, name := range []string{"broadcast", "cascade", "countdown", "pingpong", "sieve"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "rounds=3")
	assert.Contains(t, out, "limit=30")
}

func TestList_ProgramsJSON(t *testing.T) {
	out, _, err := execute(NewListCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []ProgramInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 5)
	assert.Equal(t, "broadcast", resp.Data[0].Name, "sorted by name")

	for _, p := range resp.Data {
		if p.Name == "sieve" {
			require.Len(t, p.Params, 1)
			assert.Equal(t, ParamInfo{Name: "limit", Default: 30, Min: 2, Usage: "largest candidate"}, p.Params[0])
		}
	}
}

func TestList_Runs(t *testing.T) {
	dbPath := tempDB(t)
	storeTestRun(t, dbPath, "countdown", "--param", "from=1")

	out, _, err := execute(NewListCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "test-0001")
	assert.Contains(t, out, "countdown")
}

func TestList_RunsJSON(t *testing.T) {
	dbPath := tempDB(t)
	storeTestRun(t, dbPath, "countdown", "--param", "from=1")

	out, _, err := execute(NewListCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []store.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "test-0001", resp.Data[0].ID)
	assert.Equal(t, store.StatusOK, resp.Data[0].Status)
	assert.Equal(t, int64(5), resp.Data[0].Cycles)
}

func TestList_EmptyDatabase(t *testing.T) {
	out, _, err := execute(NewListCommand(&RootOptions{Format: "text"}), "--db", tempDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}
