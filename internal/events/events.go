package events

import (
	"time"

	"github.com/mfenderov/pic-harvest/pkg/models"
)

// ImageSavedEvent is sent after an image has been written to disk.
type ImageSavedEvent struct {
	Image models.Image
	Data  []byte // image bytes as written
}

// HarvestCompleteEvent is sent when a harvest run finishes.
type HarvestCompleteEvent struct {
	PageURL   string        // Page that was harvested
	Site      string        // Site folder name (e.g., "img" for img.example.com)
	Dir       string        // Local destination folder
	Saved     int           // Images written
	Failed    int           // Images that could not be downloaded or written
	Duration  time.Duration // How long the run took
	Timestamp time.Time     // When the run completed
}
