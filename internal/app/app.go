package app

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// FileType identifies the kind of source file in a generated app
type FileType string

const (
	FileTypeHTML       FileType = "html"
	FileTypeCSS        FileType = "css"
	FileTypeJavaScript FileType = "javascript"
)

// File is one source file of a generated app
type File struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Type    FileType `json:"type"`
}

// Record is a persisted generated app
type Record struct {
	ID                 string    `json:"id"`
	DisplayName        string    `json:"name"`
	Idea               string    `json:"idea"`
	ServiceID          string    `json:"service_id"`
	ModelID            string    `json:"model_id"`
	ServiceDisplayName string    `json:"service_name"`
	ModelDisplayName   string    `json:"model_name"`
	CreatedAt          time.Time `json:"created_at"`
	Files              []File    `json:"files"`
}

// Clone returns a copy of the record that shares no slices with r
func (r Record) Clone() Record {
	out := r
	out.Files = append([]File(nil), r.Files...)
	return out
}

const displayNameLimit = 30

// DisplayName builds the gallery name for an app generated from idea.
// The idea is cut to 30 characters with a trailing "..." when longer.
func DisplayName(idea string) string {
	runes := []rune(idea)
	if len(runes) > displayNameLimit {
		return fmt.Sprintf("App from \"%s...\"", string(runes[:displayNameLimit]))
	}
	return fmt.Sprintf("App from \"%s\"", idea)
}

// SortNewestFirst orders records by CreatedAt descending, ties broken by ID descending
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// IDGenerator hands out "app_<unix ms>" identifiers.
// Two calls within the same millisecond still get distinct ids.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates an id generator reading the given clock (time.Now when nil)
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns the next id and the time it was derived from
func (g *IDGenerator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now()
	ms := t.UnixMilli()
	if ms <= g.last {
		// keep the id and its timestamp on the same millisecond
		ms = g.last + 1
		t = time.UnixMilli(ms).In(t.Location())
	}
	g.last = ms
	return fmt.Sprintf("app_%d", ms), t
}
