package storage

import (
	"time"
)

// SkipReason names why a file under the content root was not cached.
type SkipReason string

// Skip reasons.
const (
	SkipOversized     SkipReason = "oversized"
	SkipUnreadable    SkipReason = "unreadable"
	SkipSelfBinary    SkipReason = "self_binary"
	SkipNotRegular    SkipReason = "not_regular"
	SkipSymlinkEscape SkipReason = "symlink_escape"
	SkipInvalidName   SkipReason = "invalid_name"
)

// Skipped records one file left out of the cache.
type Skipped struct {
	Path   string     `json:"path" yaml:"path"`
	Reason SkipReason `json:"reason" yaml:"reason"`
	Err    error      `json:"-" yaml:"-"`
}

// BuildStats summarizes a cache build.
type BuildStats struct {
	Root        string        `json:"root" yaml:"root"`
	Scanned     int           `json:"scanned" yaml:"scanned"`
	Admitted    int           `json:"admitted" yaml:"admitted"`
	Aliases     int           `json:"aliases" yaml:"aliases"`
	Bytes       int64         `json:"bytes" yaml:"bytes"`
	Skipped     []Skipped     `json:"skipped" yaml:"skipped"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Fingerprint string        `json:"fingerprint" yaml:"fingerprint"`
}

func newBuildStats(root string) *BuildStats {
	return &BuildStats{Root: root}
}

// SkippedBy returns the skip count grouped by reason.
func (s *BuildStats) SkippedBy() map[SkipReason]int {
	out := make(map[SkipReason]int)
	for _, sk := range s.Skipped {
		out[sk.Reason]++
	}
	return out
}

// Count returns the number of files skipped for reason.
func (s *BuildStats) Count(reason SkipReason) int {
	n := 0
	for _, sk := range s.Skipped {
		if sk.Reason == reason {
			n++
		}
	}
	return n
}
