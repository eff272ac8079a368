package ratelimit

import (
	"strings"
	"time"
)

// Abuse scoring thresholds. A client whose smoothed score exceeds
// blockScore is blocked for abuseBlockFor regardless of its window
// counts.
const (
	blockScore    = 10.0
	abuseBlockFor = 60 * time.Minute

	// emaWeight keeps 80% of history per observation so a single odd
	// request cannot trip the block on its own.
	emaWeight = 0.8

	gapSampleSize = 10

	// The pacing signal needs both a rapid cadence and near-zero jitter;
	// slow-but-steady pollers stay unscored.
	pacingMeanCeiling     = 5.0 // seconds
	pacingVarianceCeiling = 0.1
)

// knownToolMarkers flag automation clients that make no attempt to look
// like a browser.
var knownToolMarkers = []string{
	"curl", "wget", "python-requests", "python-urllib", "go-http-client",
	"scrapy", "httpclient", "java/", "libwww", "okhttp", "aiohttp",
}

// attackMarkers are URL fragments typical of probing, not scraping.
var attackMarkers = []string{
	"../", "..%2f", "<script", "%3cscript", "union select", "union%20select",
	"etc/passwd", "cmd=", "exec(", "eval(", ".env", "wp-admin", "phpmyadmin",
}

// Observation carries the per-request signals the scorer looks at.
type Observation struct {
	UserAgent  string
	Path       string
	RawQuery   string
	HeaderSize int
}

// instantScore rates one request in isolation.
func instantScore(o Observation, gaps []float64) float64 {
	score := 0.0

	ua := strings.ToLower(o.UserAgent)
	switch {
	case ua == "":
		score += 3
	case len(ua) < 10:
		score += 2
	}
	for _, marker := range knownToolMarkers {
		if strings.Contains(ua, marker) {
			score += 2
			break
		}
	}

	target := strings.ToLower(o.Path + "?" + o.RawQuery)
	for _, marker := range attackMarkers {
		if strings.Contains(target, marker) {
			score += 5
			break
		}
	}

	if len(o.Path)+len(o.RawQuery) > 2000 {
		score += 2
	}
	if o.HeaderSize > 8192 {
		score += 2
	}

	// Machine-regular request pacing: a full sample of rapid,
	// near-identical inter-request gaps is a strong automation tell.
	if len(gaps) >= gapSampleSize {
		mean, variance := gapStats(gaps)
		if mean < pacingMeanCeiling && variance < pacingVarianceCeiling {
			score += 3
		}
	}

	return score
}

// gapStats computes the mean and population variance of inter-request
// gaps in seconds.
func gapStats(gaps []float64) (mean, variance float64) {
	if len(gaps) == 0 {
		return 0, 0
	}
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	variance /= float64(len(gaps))
	return mean, variance
}
