// Package pricing holds the static price guidance shown when posting and
// browsing jobs.
package pricing

import (
	"strings"

	"github.com/gosimple/slug"
)

const Currency = "ZAR"

// Known job types.
const (
	Plumbing    = "plumbing"
	Painting    = "painting"
	Electrical  = "electrical"
	Fencing     = "fencing"
	Ceiling     = "ceiling"
	Bricklaying = "bricklaying"
	Other       = "other"
)

// Range is a suggested price band in whole currency units.
type Range struct {
	JobType  string `json:"job_type"`
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	Currency string `json:"currency"`
}

var ranges = map[string]Range{
	Plumbing:    {Min: 800, Max: 1500},
	Painting:    {Min: 1500, Max: 3000},
	Electrical:  {Min: 600, Max: 1200},
	Fencing:     {Min: 5000, Max: 10000},
	Ceiling:     {Min: 2000, Max: 4500},
	Bricklaying: {Min: 3000, Max: 6000},
}

var defaultRange = Range{Min: 1000, Max: 5000}

var aliases = map[string]string{
	"plumber":     Plumbing,
	"painter":     Painting,
	"electrician": Electrical,
	"electric":    Electrical,
	"fence":       Fencing,
	"ceilings":    Ceiling,
	"bricklayer":  Bricklaying,
	"brick-work":  Bricklaying,
	"brickwork":   Bricklaying,
}

// NormalizeJobType turns user input like "Brick Laying " or "Electrician"
// into a canonical job type key. Unknown input is returned slugged.
func NormalizeJobType(raw string) string {
	s := slug.Make(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if canon, ok := aliases[s]; ok {
		return canon
	}
	if joined := strings.ReplaceAll(s, "-", ""); joined != s {
		if _, ok := ranges[joined]; ok {
			return joined
		}
		if canon, ok := aliases[joined]; ok {
			return canon
		}
	}
	return s
}

// KnownJobType reports whether jobType (already normalised) is one the
// marketplace accepts.
func KnownJobType(jobType string) bool {
	if jobType == Other {
		return true
	}
	_, ok := ranges[jobType]
	return ok
}

// JobTypes lists the accepted job types.
func JobTypes() []string {
	return []string{Plumbing, Painting, Electrical, Fencing, Ceiling, Bricklaying, Other}
}

// Suggest returns the price band for a job type, falling back to the
// default band.
func Suggest(jobType string) Range {
	key := NormalizeJobType(jobType)
	r, ok := ranges[key]
	if !ok {
		r = defaultRange
	}
	r.JobType = key
	r.Currency = Currency
	return r
}

// Match labels.
const (
	MatchGood = "good"
	MatchFair = "fair"
	MatchLow  = "low"
)

// MatchLabel rates a budget against the suggested band.
func MatchLabel(jobType string, budget int64) string {
	r := Suggest(jobType)
	switch {
	case budget >= r.Min:
		return MatchGood
	case budget*2 >= r.Min:
		return MatchFair
	default:
		return MatchLow
	}
}

// Draft carries the fields counted towards form completion.
type Draft struct {
	Title       string
	Description string
	Budget      int64
	Location    string
	JobType     string
}

// CompletionPercent is 20 per filled field.
func CompletionPercent(d Draft) int {
	n := 0
	if strings.TrimSpace(d.Title) != "" {
		n++
	}
	if strings.TrimSpace(d.Description) != "" {
		n++
	}
	if d.Budget > 0 {
		n++
	}
	if strings.TrimSpace(d.Location) != "" {
		n++
	}
	if strings.TrimSpace(d.JobType) != "" {
		n++
	}
	return n * 20
}
