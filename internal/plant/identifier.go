// Package plant identifies plants from captured images.
package plant

import (
	"context"
	"time"

	"github.com/leaflens/leaflens-host/internal/models"
)

// DefaultLatency mirrors the analysis delay users see on the scan screen.
const DefaultLatency = 1500 * time.Millisecond

type Identifier interface {
	Identify(ctx context.Context, capture models.Capture) (models.PlantInfo, error)
}

// MockIdentifier answers every capture with the sample plant after a fixed
// delay. It stands in until a real identification API is wired.
type MockIdentifier struct {
	latency time.Duration
}

func NewMockIdentifier(latency time.Duration) *MockIdentifier {
	return &MockIdentifier{latency: latency}
}

func (m *MockIdentifier) Identify(ctx context.Context, _ models.Capture) (models.PlantInfo, error) {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.PlantInfo{}, ctx.Err()
		case <-timer.C:
		}
	}
	return SamplePlant(), nil
}

func SamplePlant() models.PlantInfo {
	return models.PlantInfo{
		Name:           "Sample Plant",
		ScientificName: "Plantus Exampleus",
		Description:    "This is a sample plant description that provides information about the identified plant species.",
		CareGuide: models.CareGuide{
			Water:       "Water twice a week",
			Sunlight:    "Partial shade to full sun",
			Soil:        "Well-draining potting mix",
			Temperature: "65-80°F (18-27°C)",
		},
		FunFacts: []string{
			"This plant is native to various regions.",
			"It has been used in traditional medicine.",
			"Can grow up to 2 meters tall.",
		},
	}
}
