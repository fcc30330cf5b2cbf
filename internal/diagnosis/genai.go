package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mavuno/agrolink/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

const systemInstruction = "You are an expert agronomist for African smallholder farmers. " +
	"You will be given an image of a plant and asked to diagnose it. Provide the common name of the plant (crop), " +
	"common name of the disease or pest, scientific name, confidence level (0.0 to 1.0), a summary of key visual " +
	"cues for identification, and a list of up to 3 specific visual features (cues) it identified in the image " +
	"(e.g., 'window-paning', 'frass'). Respond ONLY with a JSON object."

// GenAIConfig configures the Gemini client. BaseURL is empty in production.
type GenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GenAIDiagnoser asks a Gemini model for a JSON diagnosis constrained by a
// response schema.
type GenAIDiagnoser struct {
	client *genai.Client
	model  string
}

func NewGenAIDiagnoser(ctx context.Context, cfg GenAIConfig) (*GenAIDiagnoser, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrDiagnoserUnavailable
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIDiagnoser{client: client, model: cfg.Model}, nil
}

func (d *GenAIDiagnoser) Diagnose(ctx context.Context, img domain.ImageData, userQuery string) (*domain.Diagnosis, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(Prompt(userQuery)),
		}, genai.RoleUser),
	}

	resp, err := d.client.Models.GenerateContent(ctx, d.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate diagnosis: %w", err)
	}

	return ParseDiagnosis(resp.Text())
}

// Prompt builds the user turn, appending the farmer's note when present.
func Prompt(userQuery string) string {
	p := "Diagnose the pest or disease in this image of a plant."
	if q := strings.TrimSpace(userQuery); q != "" {
		p += fmt.Sprintf(" The farmer also noted the following: %q", q)
	}
	return p
}

// ParseDiagnosis decodes the model's JSON answer.
func ParseDiagnosis(text string) (*domain.Diagnosis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyDiagnosis
	}
	var out domain.Diagnosis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode diagnosis: %w", err)
	}
	return &out, nil
}

func responseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"crop":        str("Common name of the plant, e.g., 'Maize'."),
			"label":       str("Common name of the disease or pest."),
			"confidence":  {Type: genai.TypeNumber, Description: "Confidence level of the diagnosis, from 0.0 to 1.0."},
			"explanation": str("A summary of key visual cues for identification."),
			"pest_name":   str("Scientific name of the pest or disease."),
			"cues": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "List of specific visual features the model identified.",
			},
		},
		Required: []string{"crop", "label", "confidence", "explanation", "pest_name", "cues"},
	}
}

var _ Diagnoser = (*GenAIDiagnoser)(nil)
