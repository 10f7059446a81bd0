package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Image represents one harvested image written to disk.
type Image struct {
	ID          string    `json:"id"`
	PageURL     string    `json:"page_url"`
	Reference   string    `json:"reference"` // raw src attribute value
	URL         string    `json:"url"`       // resolved image URL
	Site        string    `json:"site"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"` // HTTP Content-Type header
	Size        int64     `json:"size"`
	HarvestedAt time.Time `json:"harvested_at"`
}

// GenerateImageID creates a deterministic ID from the page and image URLs.
// The ID is a SHA-256 hash (first 16 chars) of both joined by a newline.
func GenerateImageID(pageURL, imageURL string) string {
	hash := sha256.Sum256([]byte(pageURL + "\n" + imageURL))
	return hex.EncodeToString(hash[:])[:16]
}
