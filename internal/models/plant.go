package models

import "time"

type CareGuide struct {
	Water       string `json:"water"`
	Sunlight    string `json:"sunlight"`
	Soil        string `json:"soil"`
	Temperature string `json:"temperature"`
}

// PlantInfo is the result of identifying a captured image.
type PlantInfo struct {
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name"`
	Description    string    `json:"description"`
	CareGuide      CareGuide `json:"care_guide"`
	FunFacts       []string  `json:"fun_facts"`
}

type Favorite struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name"`
	Description    string    `json:"description"`
	CareGuide      CareGuide `json:"care_guide"`
	FunFacts       []string  `json:"fun_facts"`
	Image          string    `json:"image"`
	SavedAt        time.Time `json:"saved_at"`
}

// Capture is an encoded still image acquired from a camera or a file.
type Capture struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	Source      string `json:"source"`
}

// StoredImage is a capture persisted to image storage.
type StoredImage struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ScanResult is what the scan screen shows after identification.
type ScanResult struct {
	Image StoredImage `json:"image"`
	Plant PlantInfo   `json:"plant"`
}
