package retrieval_test

import (
	"testing"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/retrieval"
)

func TestRRFFusion_MergesAndDeduplicates(t *testing.T) {
	fusion := retrieval.NewRRFFusion(60)

	results := [][]candidate.Item{
		{
			{ID: "a", Text: "alpha"},
			{ID: "b", Text: "beta"},
		},
		{
			{ID: "b", Text: "beta"},
			{ID: "c", Text: "gamma"},
		},
	}

	fused := fusion.Fuse(results, nil, 0)

	if len(fused) != 3 {
		t.Fatalf("expected 3 deduplicated items, got %d", len(fused))
	}
	// "b" appears in both lists and accumulates two rank contributions.
	if fused[0].ID != "b" {
		t.Fatalf("expected 'b' ranked first, got %s", fused[0].ID)
	}
}

func TestRRFFusion_RespectsWeights(t *testing.T) {
	fusion := retrieval.NewRRFFusion(60)

	results := [][]candidate.Item{
		{{ID: "a", Text: "alpha"}},
		{{ID: "b", Text: "beta"}},
	}
	weights := []float64{1.0, 5.0}

	fused := fusion.Fuse(results, weights, 0)

	if fused[0].ID != "b" {
		t.Fatalf("expected weighted 'b' first, got %s", fused[0].ID)
	}
}

func TestRRFFusion_TopK(t *testing.T) {
	fusion := retrieval.NewRRFFusion(0) // falls back to default k

	results := [][]candidate.Item{
		{
			{ID: "a", Text: "alpha"},
			{ID: "b", Text: "beta"},
			{ID: "c", Text: "gamma"},
		},
	}

	fused := fusion.Fuse(results, nil, 2)

	if len(fused) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fused))
	}
	if fused[0].ID != "a" || fused[1].ID != "b" {
		t.Fatalf("unexpected order: %s, %s", fused[0].ID, fused[1].ID)
	}
}

func TestRRFFusion_EmptyInput(t *testing.T) {
	fusion := retrieval.NewRRFFusion(60)

	if fused := fusion.Fuse(nil, nil, 5); fused != nil {
		t.Fatalf("expected nil for empty input, got %v", fused)
	}
}

func TestScoreFusion_KeepsBestWeightedScore(t *testing.T) {
	fusion := retrieval.NewScoreFusion()

	results := [][]candidate.Item{
		{
			{ID: "a", Text: "alpha", Score: 0.9},
			{ID: "b", Text: "beta", Score: 0.4},
		},
		{
			{ID: "b", Text: "beta", Score: 0.8},
		},
	}

	fused := fusion.Fuse(results, nil, 0)

	if len(fused) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fused))
	}
	if fused[0].ID != "a" {
		t.Fatalf("expected 'a' first, got %s", fused[0].ID)
	}
	// "b" keeps its higher score from the second result set.
	if fused[1].Score != 0.8 {
		t.Fatalf("expected best score 0.8 for 'b', got %.2f", fused[1].Score)
	}
}

func TestScoreFusion_TieBreaksByFirstSeen(t *testing.T) {
	fusion := retrieval.NewScoreFusion()

	results := [][]candidate.Item{
		{
			{ID: "x", Text: "x", Score: 0.5},
			{ID: "y", Text: "y", Score: 0.5},
		},
	}

	fused := fusion.Fuse(results, nil, 0)

	if fused[0].ID != "x" || fused[1].ID != "y" {
		t.Fatalf("expected first-seen order on ties, got %s, %s", fused[0].ID, fused[1].ID)
	}
}
