package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/queue"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestProductsCmd(t *testing.T) {
	out := run(t, "products", "Fungicide", "Agri")
	assert.Contains(t, out, "Agri-Thrive Fungicide")
	assert.Contains(t, out, "Meru Crop Experts")
}

func TestSearchCmd_JSON(t *testing.T) {
	out := run(t, "search", "copper", "--sort", "price", "--json")

	var res domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Combined, 2)
	assert.Equal(t, "dealer-3", res.Combined[0].Dealer.ID)
}

func TestSubstitutesCmd_NoResults(t *testing.T) {
	out := run(t, "substitutes", "Mancozeb")
	assert.Contains(t, out, "no results")
}

func seedQueue(t *testing.T, path string, n int) {
	t.Helper()
	store, err := queue.OpenSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	q := queue.New[domain.DiagnosisSubmission]("diagnosis_queue", store,
		func(context.Context, domain.DiagnosisSubmission) (bool, error) { return false, nil },
		connectivity.NewSwitch(false), zap.NewNop(), queue.Hooks{})
	for i := 0; i < n; i++ {
		q.AddItem(context.Background(), domain.DiagnosisSubmission{
			ClientID: "device-1",
			Image:    domain.ImageData{Data: []byte{1, 2, 3}, MIMEType: "image/png"},
		})
	}
}

func TestQueueStatusCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, path, 2)

	out := run(t, "queue", "status", "--db", path)
	assert.Contains(t, out, "diagnosis_queue: 2 pending")
	assert.Contains(t, out, "image/png (3 bytes)")
}

func TestQueueDrainCmd_KeepsItemsWithoutModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, path, 1)

	out := run(t, "queue", "drain", "--db", path)
	assert.Contains(t, out, "processed 0, 1 pending")

	out = run(t, "queue", "drain", "--db", path, "--offline")
	assert.Contains(t, out, "processed 0, 1 pending")
}
