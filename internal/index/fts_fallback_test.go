//go:build !sqlite_fts5

package index

import (
	"strings"
	"testing"
	"time"
)

func TestFallbackSearch_RanksNameHitsFirst(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(MyfileRow{Name: "a-fan", DisplayName: "Fan", Checksum: "1", Fields: `{"likes":"grace hopper"}`, UpdatedAt: now})
	_ = db.Upsert(MyfileRow{Name: "grace", DisplayName: "Grace Hopper", Checksum: "2", Fields: `{}`, UpdatedAt: now})

	hits, err := db.Search("grace", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want 2", hits)
	}
	if hits[0].Name != "grace" {
		t.Errorf("first hit = %q, want grace", hits[0].Name)
	}
}

func TestFallbackSearch_WildcardsAreLiteral(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(MyfileRow{Name: "pct", Checksum: "1", Fields: `{"score":"100%"}`, UpdatedAt: now})
	_ = db.Upsert(MyfileRow{Name: "plain", Checksum: "2", Fields: `{"score":"100 points"}`, UpdatedAt: now})

	hits, err := db.Search("0%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "pct" {
		t.Errorf("hits = %+v, want only pct", hits)
	}

	if hits, _ := db.Search("1_0", 10); len(hits) != 0 {
		t.Errorf("underscore matched as wildcard: %+v", hits)
	}
}

func TestFallbackSearch_SnippetStartsNearMatch(t *testing.T) {
	db := testDB(t)
	long := `{"bio":"` + strings.Repeat("filler ", 30) + `needle at the end"}`
	_ = db.Upsert(MyfileRow{Name: "n", Checksum: "1", Fields: long, UpdatedAt: time.Now()})

	hits, err := db.Search("NEEDLE", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %+v", hits)
	}
	if !strings.HasPrefix(hits[0].Snippet, "...") || !strings.Contains(hits[0].Snippet, "needle") {
		t.Errorf("snippet = %q", hits[0].Snippet)
	}
}

func TestFallbackSearch_EmptyQuery(t *testing.T) {
	db := testDB(t)
	hits, err := db.Search("   ", 10)
	if err != nil || hits != nil {
		t.Errorf("Search(blank) = %v, %v", hits, err)
	}
}
