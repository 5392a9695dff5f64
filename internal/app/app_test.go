package app

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		idea string
		want string
	}{
		{name: "short", idea: "a todo list", want: `App from "a todo list"`},
		{name: "exactly thirty", idea: strings.Repeat("x", 30), want: `App from "` + strings.Repeat("x", 30) + `"`},
		{name: "truncated", idea: "a collaborative whiteboard for remote teams", want: `App from "a collaborative whiteboard for..."`},
		{name: "counts characters not bytes", idea: strings.Repeat("é", 31), want: `App from "` + strings.Repeat("é", 30) + `..."`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.idea))
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "app_1", CreatedAt: base},
		{ID: "app_3", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "app_2", CreatedAt: base.Add(time.Hour)},
		{ID: "app_4", CreatedAt: base.Add(2 * time.Hour)},
	}

	SortNewestFirst(records)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"app_4", "app_3", "app_2", "app_1"}, ids)
}

func TestIDGenerator(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := NewIDGenerator(func() time.Time { return fixed })

	first, at := g.Next()
	second, _ := g.Next()
	third, _ := g.Next()

	assert.Equal(t, "app_1700000000000", first)
	assert.Equal(t, "app_1700000000001", second)
	assert.Equal(t, "app_1700000000002", third)
	assert.True(t, fixed.Equal(at))
}

func TestIDGeneratorBumpedTimestampMatchesID(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 500_000, time.UTC)
	g := NewIDGenerator(func() time.Time { return fixed })

	_, first := g.Next()
	id, second := g.Next()

	assert.Equal(t, fmt.Sprintf("app_%d", second.UnixMilli()), id)
	assert.True(t, second.After(first))
	assert.Equal(t, time.UTC, second.Location())
}

func TestRecordClone(t *testing.T) {
	rec := Record{ID: "app_1", Files: []File{{Name: "index.html", Content: "<p></p>", Type: FileTypeHTML}}}
	cp := rec.Clone()
	cp.Files[0].Content = "changed"
	assert.Equal(t, "<p></p>", rec.Files[0].Content)
}
