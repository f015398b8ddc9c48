package knowledge

import (
	"context"
	"testing"
)

func TestChromemSearcher_IndexAndSearch(t *testing.T) {
	s, err := NewChromemSearcher("")
	if err != nil {
		t.Fatalf("NewChromemSearcher() error = %v", err)
	}

	ctx := context.Background()
	if err := s.Index(ctx, "doc-1", Result{Title: "Webhooks", Content: "how to configure the webhook integration", Category: "technical"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := s.Index(ctx, "doc-2", Result{Title: "Billing", Content: "how invoices and refunds are processed", Category: "billing"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	results, err := s.Search(ctx, "webhook integration", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() = %d results, want 1", len(results))
	}
	if results[0].Title != "Webhooks" {
		t.Errorf("Search() top result = %q, want %q", results[0].Title, "Webhooks")
	}
}

func TestChromemSearcher_EmptyCollectionReturnsNoResults(t *testing.T) {
	s, err := NewChromemSearcher("")
	if err != nil {
		t.Fatalf("NewChromemSearcher() error = %v", err)
	}
	results, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty collection = %+v, want none", results)
	}
}
