package diagnosis_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/agrolink/internal/diagnosis"
	"github.com/mavuno/agrolink/internal/domain"
)

const blightJSON = `{"crop":"Tomato","label":"Late Blight","confidence":0.91,
	"explanation":"Water-soaked lesions with white mould on leaf undersides.",
	"pest_name":"Phytophthora infestans","cues":["water-soaked lesions","white mould"]}`

func TestParseDiagnosis(t *testing.T) {
	d, err := diagnosis.ParseDiagnosis("  " + blightJSON + "\n")
	require.NoError(t, err)
	assert.Equal(t, "Late Blight", d.Label)
	assert.Equal(t, "Phytophthora infestans", d.PestName)
	assert.Len(t, d.Cues, 2)

	_, err = diagnosis.ParseDiagnosis("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyDiagnosis)

	_, err = diagnosis.ParseDiagnosis("not json")
	assert.Error(t, err)
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, "Diagnose the pest or disease in this image of a plant.", diagnosis.Prompt("  "))
	assert.Contains(t, diagnosis.Prompt("leaves curling"), `"leaves curling"`)
}

func TestNewGenAIDiagnoser_RequiresKey(t *testing.T) {
	_, err := diagnosis.NewGenAIDiagnoser(context.Background(), diagnosis.GenAIConfig{})
	assert.ErrorIs(t, err, domain.ErrDiagnoserUnavailable)
}

func TestUnavailable(t *testing.T) {
	_, err := diagnosis.Unavailable{}.Diagnose(context.Background(), domain.ImageData{}, "")
	assert.ErrorIs(t, err, domain.ErrDiagnoserUnavailable)
}

func TestGenAIDiagnoser_Diagnose(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": blightJSON}},
				},
			}},
		})
	}))
	defer srv.Close()

	d, err := diagnosis.NewGenAIDiagnoser(context.Background(), diagnosis.GenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	got, err := d.Diagnose(context.Background(), domain.ImageData{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}, "spots after rain")
	require.NoError(t, err)
	assert.Equal(t, "Tomato", got.Crop)
	assert.Equal(t, 0.91, got.Confidence)

	assert.Contains(t, string(body), "image/jpeg")
	assert.Contains(t, string(body), "spots after rain")
	assert.Contains(t, string(body), "application/json")
}
