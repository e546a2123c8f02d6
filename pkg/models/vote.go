// Package models defines the core data structures used throughout votereport.
package models

import (
	"errors"
	"fmt"
	"time"
)

// VoteRecord is one row of a race file: the votes a candidate received at a
// single polling location.
type VoteRecord struct {
	Candidate string `json:"candidate"` // e.g., "MARIA DA SILVA"
	Zone      int    `json:"zone"`      // electoral zone number
	Location  string `json:"location"`  // polling location name
	Votes     int    `json:"votes"`     // non-negative
}

// ZoneCandidateSummary is the aggregate of one candidate inside one zone.
type ZoneCandidateSummary struct {
	Zone      int     `json:"zone"`
	Candidate string  `json:"candidate"`
	Votes     int     `json:"votes"`     // sum over the zone's polling locations
	Rank      int     `json:"rank"`      // minimum competition rank within the zone
	ZoneMean  float64 `json:"zone_mean"` // mean of per-candidate totals in the zone
}

// Race is a loaded race file.
type Race struct {
	Key      string       `json:"key"`    // e.g., "Governador"
	Source   string       `json:"source"` // file path the records came from
	Records  []VoteRecord `json:"-"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// LoadErrorKind classifies why a race file could not be used.
type LoadErrorKind string

const (
	LoadNotFound       LoadErrorKind = "not_found"
	LoadUnreadable     LoadErrorKind = "unreadable"
	LoadSchemaMismatch LoadErrorKind = "schema_mismatch"
)

// ErrLoad is matched by every *LoadError.
var ErrLoad = errors.New("race file could not be loaded")

// LoadError reports a non-fatal problem with one race file. The race is
// left out of the selectable list; other races stay usable.
type LoadError struct {
	Race   string        `json:"race"`
	Source string        `json:"source"`
	Kind   LoadErrorKind `json:"kind"`
	Err    error         `json:"-"`
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case LoadNotFound:
		return fmt.Sprintf("file %s not found (race %s)", e.Source, e.Race)
	case LoadSchemaMismatch:
		if e.Err != nil {
			return fmt.Sprintf("file %s is missing required columns (race %s): %v", e.Source, e.Race, e.Err)
		}
		return fmt.Sprintf("file %s is missing required columns (race %s)", e.Source, e.Race)
	default:
		if e.Err != nil {
			return fmt.Sprintf("file %s is unreadable (race %s): %v", e.Source, e.Race, e.Err)
		}
		return fmt.Sprintf("file %s is unreadable (race %s)", e.Source, e.Race)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrLoad) match any load error.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Message is the operator-facing text, also used in JSON payloads.
func (e *LoadError) Message() string { return e.Error() }
