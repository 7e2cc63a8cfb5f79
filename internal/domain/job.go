package domain

import (
	"strings"
	"time"
)

// JobRecord is the upstream job posting as the platform returns it. The engine
// treats it as an opaque pass-through value; only the fields below take part in
// filtering and sorting.
type JobRecord struct {
	ID              int64  `json:"id"`
	Title           string `json:"job_title"`
	Client          string `json:"client"`
	Skills          string `json:"skills"`
	City            string `json:"city"`
	Country         string `json:"country"`
	ZipCode         string `json:"zip_code"`
	Created         string `json:"created"`
	Description     string `json:"job_description"`
	DescriptionText string `json:"description_text,omitempty"`
}

var createdLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CreatedAt parses the upstream creation timestamp. ok is false when the field
// is empty or in a shape we don't recognize; such records sort as undated.
func (j JobRecord) CreatedAt() (t time.Time, ok bool) {
	raw := strings.TrimSpace(j.Created)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range createdLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// MatchesText reports whether any of title/client/skills contains q,
// case-insensitively. An empty q matches everything.
func (j JobRecord) MatchesText(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(j.Title), q) ||
		strings.Contains(strings.ToLower(j.Client), q) ||
		strings.Contains(strings.ToLower(j.Skills), q)
}

// MatchesLocation reports whether any of city/country/zip contains loc,
// case-insensitively. An empty loc matches everything.
func (j JobRecord) MatchesLocation(loc string) bool {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if loc == "" {
		return true
	}
	return strings.Contains(strings.ToLower(j.City), loc) ||
		strings.Contains(strings.ToLower(j.Country), loc) ||
		strings.Contains(strings.ToLower(j.ZipCode), loc)
}
