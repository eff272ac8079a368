// Package ratelimit implements per-client admission control with
// sliding windows, burst detection, behavioral abuse scoring, and
// temporary blocks.
package ratelimit

import (
	"strings"
	"time"
)

// Class is the limit profile applied to a group of endpoints.
type Class struct {
	Name      string
	PerMinute int
	PerHour   int
	PerDay    int
	Burst     int // max requests inside the 10s burst window
	BlockFor  time.Duration
}

var (
	// ClassDefault covers read-mostly endpoints.
	ClassDefault = Class{
		Name:      "default",
		PerMinute: 60,
		PerHour:   1000,
		PerDay:    10000,
		Burst:     10,
		BlockFor:  15 * time.Minute,
	}

	// ClassScraping covers endpoints that consume rendering engines.
	ClassScraping = Class{
		Name:      "scraping",
		PerMinute: 30,
		PerHour:   500,
		PerDay:    5000,
		Burst:     5,
		BlockFor:  30 * time.Minute,
	}

	// ClassMaintenance covers destructive operational endpoints.
	ClassMaintenance = Class{
		Name:      "maintenance",
		PerMinute: 10,
		PerHour:   100,
		PerDay:    1000,
		Burst:     2,
		BlockFor:  60 * time.Minute,
	}
)

// Classify maps a request path to its limit class.
func Classify(path string) Class {
	switch {
	case strings.Contains(path, "/scrape"):
		return ClassScraping
	case strings.Contains(path, "/maintenance") || strings.Contains(path, "/cache"):
		return ClassMaintenance
	default:
		return ClassDefault
	}
}
