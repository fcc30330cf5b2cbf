package domain

import (
	"strings"
	"time"
)

// ImageData is a photo captured on the farmer's phone.
type ImageData struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// DiagnosisSubmission is the payload held by the offline queue until the
// diagnosis service is reachable.
type DiagnosisSubmission struct {
	ClientID  string    `json:"client_id"`
	FarmerID  string    `json:"farmer_id,omitempty"`
	Image     ImageData `json:"image"`
	UserQuery string    `json:"user_query,omitempty"`
}

func (s *DiagnosisSubmission) Validate() error {
	if len(s.Image.Data) == 0 || strings.TrimSpace(s.Image.MIMEType) == "" {
		return ErrInvalidImage
	}
	return nil
}

// Diagnosis is the structured answer of the diagnosis model.
type Diagnosis struct {
	Crop        string   `json:"crop"`
	Label       string   `json:"label"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	PestName    string   `json:"pest_name"`
	Cues        []string `json:"cues"`
}

// Risk grades how dangerous a diagnosed pest is for the surrounding area.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

var (
	highRiskPests   = []string{"Late Blight", "Banana Xanthomonas Wilt", "Maize Lethal Necrosis"}
	mediumRiskPests = []string{"Gray Leaf Spot", "Cassava Mosaic Disease"}
)

// RiskForPest maps a diagnosis label to its risk grade.
func RiskForPest(label string) Risk {
	for _, p := range highRiskPests {
		if p == label {
			return RiskHigh
		}
	}
	for _, p := range mediumRiskPests {
		if p == label {
			return RiskMedium
		}
	}
	return RiskLow
}

// DiagnosisCase is a synced diagnosis awaiting expert review.
type DiagnosisCase struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	FarmerID  string    `json:"farmer_id,omitempty"`
	Crop      string    `json:"crop"`
	Label     string    `json:"label"`
	Diagnosis Diagnosis `json:"diagnosis"`
	Risk      Risk      `json:"risk"`
	CreatedAt time.Time `json:"created_at"`
}
