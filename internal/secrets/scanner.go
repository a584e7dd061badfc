// Package secrets finds and masks credentials in text bound for logs and
// error messages.
package secrets

import (
	"sort"
	"strings"
)

// Mask replaces every redacted span.
const Mask = "[REDACTED]"

// Detection represents a detected secret in text.
type Detection struct {
	PatternName string
	Start       int // byte offset
	End         int // byte offset
}

// Scanner scans text for secrets using pre-compiled regex patterns.
type Scanner struct {
	patterns []Pattern
}

// NewScanner creates a scanner with the default secret patterns.
func NewScanner() *Scanner {
	return &Scanner{patterns: DefaultPatterns()}
}

// Scan returns all detections in text, ordered by start offset.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		group := p.Regex.SubexpIndex("secret")
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if group > 0 && loc[2*group] >= 0 {
				start, end = loc[2*group], loc[2*group+1]
			}
			detections = append(detections, Detection{PatternName: p.Name, Start: start, End: end})
		}
	}
	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Start < detections[j].Start
	})
	return detections
}

// Redact masks every detected secret and every occurrence of the given
// known values. Empty known values are ignored.
func (s *Scanner) Redact(text string, known ...string) string {
	for _, v := range known {
		if v != "" {
			text = strings.ReplaceAll(text, v, Mask)
		}
	}

	detections := s.Scan(text)
	if len(detections) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, d := range detections {
		if d.End <= pos {
			continue
		}
		if d.Start < pos {
			// Overlaps the span already masked.
			pos = d.End
			continue
		}
		b.WriteString(text[pos:d.Start])
		b.WriteString(Mask)
		pos = d.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
