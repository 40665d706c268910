package lexical

import (
	"testing"
)

func TestReplaceAndSearch(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = idx.Close() }()

	docs := []Doc{
		{ID: "a", Text: "handles player inventory slots and item stacking"},
		{ID: "b", Text: "renders terrain chunks on the client"},
		{ID: "c", Text: "inventory persistence and save format"},
	}
	if err := idx.Replace("code", docs); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	matches, err := idx.Search("code", "inventory", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.ID != "a" && m.ID != "c" {
			t.Errorf("unexpected match %s", m.ID)
		}
		if m.Score <= 0 || m.Score > 1 {
			t.Errorf("score %v outside (0,1]", m.Score)
		}
	}
}

func TestSearch_MissingTable(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = idx.Close() }()

	matches, err := idx.Search("never_indexed", "anything", 5)
	if err != nil {
		t.Fatalf("expected no error for missing table, got %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestReplace_RebuildsFromScratch(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = idx.Close() }()

	if err := idx.Replace("docs", []Doc{{ID: "old", Text: "stale guide content"}}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := idx.Replace("docs", []Doc{{ID: "new", Text: "fresh guide content"}}); err != nil {
		t.Fatalf("second Replace failed: %v", err)
	}

	matches, err := idx.Search("docs", "guide", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "new" {
		t.Errorf("expected only the rebuilt doc, got %+v", matches)
	}
}
