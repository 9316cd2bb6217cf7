package selection_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/otel"
	"github.com/easyops/contextpipe-go/pkg/selection"
)

// mockEmbedder implements selection.Embedder for testing
type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	// Default: return simple vectors
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 0.0, 0.0}
	}
	return result, nil
}

func itemsWithLengths(lengths ...int) []candidate.Item {
	items := make([]candidate.Item, len(lengths))
	for i, n := range lengths {
		items[i] = candidate.Item{
			ID:   string(rune('a' + i)),
			Text: strings.Repeat("x", n),
		}
	}
	return items
}

func TestLengthBudget_SelectsClosestToTarget(t *testing.T) {
	// Lengths 10, 50, 12, 48, 11 with a 15-char query target:
	// closest are 12, 11, 10 (sum 33), the next closest (48) would
	// blow the 40-char budget.
	items := itemsWithLengths(10, 50, 12, 48, 11)

	selector, err := selection.NewSelector(selection.NewLengthBudget(), items,
		selection.WithMaxLength(40))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), strings.Repeat("q", 15))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}

	// Output preserves original pool order
	wantIDs := []string{"a", "c", "e"}
	for i, item := range result.Items {
		if item.ID != wantIDs[i] {
			t.Errorf("item %d: expected id %s, got %s", i, wantIDs[i], item.ID)
		}
	}

	total := 0
	for _, item := range result.Items {
		total += len(item.Text)
	}
	if total > 40 {
		t.Errorf("selected lengths sum %d exceeds budget 40", total)
	}
}

func TestLengthBudget_HugeBudgetReturnsFullPool(t *testing.T) {
	items := itemsWithLengths(10, 50, 12, 48, 11)

	selector, err := selection.NewSelector(selection.NewLengthBudget(), items,
		selection.WithMaxLength(1000000))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != len(items) {
		t.Fatalf("expected full pool (%d items), got %d", len(items), len(result.Items))
	}
	for i, item := range result.Items {
		if item.ID != items[i].ID {
			t.Errorf("item %d: expected original order id %s, got %s", i, items[i].ID, item.ID)
		}
	}
}

func TestLengthBudget_RequiresMaxLength(t *testing.T) {
	_, err := selection.NewSelector(selection.NewLengthBudget(), itemsWithLengths(10))
	if !stderrors.Is(err, errors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNGramOverlap_RanksByOverlap(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "Spot can run."},
		{ID: "2", Text: "My dog barks."},
		{ID: "3", Text: "See Spot run."},
	}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items,
		selection.WithThreshold(0.0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "Spot can run fast.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	if result.Items[0].ID != "1" {
		t.Errorf("expected 'Spot can run.' ranked first, got id %s", result.Items[0].ID)
	}
	if result.Items[2].ID != "2" {
		t.Errorf("expected 'My dog barks.' ranked last, got id %s", result.Items[2].ID)
	}
}

func TestNGramOverlap_ThresholdExcludesLowOverlap(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "Spot can run."},
		{ID: "2", Text: "My dog barks."},
		{ID: "3", Text: "See Spot run."},
	}

	// Any positive threshold removes the zero-overlap candidate
	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items,
		selection.WithThreshold(0.1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "Spot can run fast.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, item := range result.Items {
		if item.ID == "2" {
			t.Error("expected 'My dog barks.' to be excluded")
		}
	}
}

func TestNGramOverlap_IdenticalTextScoresOne(t *testing.T) {
	query := "the quick brown fox"
	items := []candidate.Item{{ID: "1", Text: query}}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), query)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Score != 1.0 {
		t.Errorf("expected score 1.0 for identical text, got %v", result.Items[0].Score)
	}
}

func TestNGramOverlap_SentinelDisablesFiltering(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "completely unrelated words here"},
		{ID: "2", Text: "nothing in common at all"},
	}

	// Default threshold is the sentinel: rank only, never exclude
	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "zebra quantum")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected all items kept with sentinel threshold, got %d", len(result.Items))
	}
}

func TestNGramOverlap_ThresholdAboveOneExcludesAll(t *testing.T) {
	items := []candidate.Item{{ID: "1", Text: "same text"}}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items,
		selection.WithThreshold(1.5))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "same text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("expected empty result, got %d items", len(result.Items))
	}
}

func TestEmbeddingSimilarity_TopK(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "a", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "2", Text: "b", Vector: []float32{0.0, 1.0, 0.0}},
		{ID: "3", Text: "c", Vector: []float32{0.9, 0.1, 0.0}},
	}

	embedder := &mockEmbedder{}
	selector, err := selection.NewSelector(selection.NewEmbeddingSimilarity(embedder), items,
		selection.WithK(2))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].ID != "1" || result.Items[1].ID != "3" {
		t.Errorf("expected ids [1 3], got [%s %s]", result.Items[0].ID, result.Items[1].ID)
	}
}

func TestEmbeddingSimilarity_EmbedderErrorPropagates(t *testing.T) {
	items := []candidate.Item{{ID: "1", Text: "a", Vector: []float32{1.0}}}

	embedder := &mockEmbedder{
		embedFn: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.ErrEmbeddingFailed
		},
	}

	selector, err := selection.NewSelector(selection.NewEmbeddingSimilarity(embedder), items,
		selection.WithK(1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = selector.Select(context.Background(), "query")
	if !stderrors.Is(err, errors.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestEmbeddingSimilarity_SkipsItemsWithoutVectors(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "a", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "2", Text: "b"}, // no vector
		{ID: "3", Text: "c", Vector: []float32{0.0, 0.0, 0.0}}, // zero norm
	}

	embedder := &mockEmbedder{}
	selector, err := selection.NewSelector(selection.NewEmbeddingSimilarity(embedder), items,
		selection.WithK(5))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item after skipping, got %d", len(result.Items))
	}
	if len(result.Warnings) != 2 {
		t.Errorf("expected 2 warnings for skipped items, got %d: %v", len(result.Warnings), result.Warnings)
	}
}

func TestMMR_LambdaOneMatchesEmbeddingSimilarity(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "a", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "2", Text: "b", Vector: []float32{0.0, 1.0, 0.0}},
		{ID: "3", Text: "c", Vector: []float32{0.9, 0.1, 0.0}},
		{ID: "4", Text: "d", Vector: []float32{0.5, 0.5, 0.0}},
	}

	embedder := &mockEmbedder{}
	ctx := context.Background()

	simSelector, err := selection.NewSelector(selection.NewEmbeddingSimilarity(embedder), items,
		selection.WithK(3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	mmrSelector, err := selection.NewSelector(selection.NewMMR(embedder), items,
		selection.WithK(3), selection.WithLambda(1.0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	simResult, err := simSelector.Select(ctx, "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	mmrResult, err := mmrSelector.Select(ctx, "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(simResult.Items) != len(mmrResult.Items) {
		t.Fatalf("expected equal lengths, got %d vs %d", len(simResult.Items), len(mmrResult.Items))
	}
	for i := range simResult.Items {
		if simResult.Items[i].ID != mmrResult.Items[i].ID {
			t.Errorf("position %d: expected %s, got %s",
				i, simResult.Items[i].ID, mmrResult.Items[i].ID)
		}
	}
}

func TestMMR_LambdaZeroAvoidsNearDuplicates(t *testing.T) {
	// Items 1 and 2 are near-identical; a pure-diversity pick of two
	// must not take both while a dissimilar alternative exists.
	items := []candidate.Item{
		{ID: "1", Text: "a", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "2", Text: "b", Vector: []float32{0.99, 0.01, 0.0}},
		{ID: "3", Text: "c", Vector: []float32{0.0, 1.0, 0.0}},
	}

	embedder := &mockEmbedder{}
	selector, err := selection.NewSelector(selection.NewMMR(embedder), items,
		selection.WithK(2), selection.WithLambda(0.0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "query")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}

	got := map[string]bool{}
	for _, item := range result.Items {
		got[item.ID] = true
	}
	if got["1"] && got["2"] {
		t.Error("lambda=0 selected both near-duplicates")
	}
}

func TestMMR_InvalidLambda(t *testing.T) {
	embedder := &mockEmbedder{}
	_, err := selection.NewSelector(selection.NewMMR(embedder), nil,
		selection.WithK(2), selection.WithLambda(1.5))
	if !stderrors.Is(err, errors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSelector_EmptyPoolIsAdvisory(t *testing.T) {
	selector, err := selection.NewSelector(selection.NewNGramOverlap(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "query")
	if !stderrors.Is(err, errors.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
	if !errors.IsAdvisory(err) {
		t.Error("expected ErrEmptyPool to be advisory")
	}
	if result == nil {
		t.Fatal("expected non-nil result alongside advisory error")
	}
	if len(result.Items) != 0 {
		t.Errorf("expected empty items, got %d", len(result.Items))
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning on empty pool")
	}
}

func TestSelector_AddCandidate(t *testing.T) {
	selector, err := selection.NewSelector(selection.NewNGramOverlap(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := selector.AddCandidate(candidate.NewItem("x", "hello world")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if selector.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", selector.Len())
	}

	// Duplicate id is rejected
	err = selector.AddCandidate(candidate.NewItem("x", "other text"))
	if !stderrors.Is(err, errors.ErrDuplicateCandidate) {
		t.Fatalf("expected ErrDuplicateCandidate, got %v", err)
	}
	if selector.Len() != 1 {
		t.Fatalf("expected pool unchanged, got %d candidates", selector.Len())
	}
}

func TestSelector_RespectsK(t *testing.T) {
	items := []candidate.Item{
		{ID: "1", Text: "alpha beta"},
		{ID: "2", Text: "alpha gamma"},
		{ID: "3", Text: "alpha delta"},
	}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items,
		selection.WithK(2))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Items) > 2 {
		t.Fatalf("expected at most 2 items, got %d", len(result.Items))
	}
}

func TestSelector_RecordsMetrics(t *testing.T) {
	metrics := otel.NewInMemoryMetrics()

	items := []candidate.Item{
		{ID: "1", Text: "alpha beta"},
		{ID: "2", Text: "gamma delta"},
	}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items,
		selection.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := selector.Select(context.Background(), "alpha beta"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := metrics.GetCounterValue(otel.MetricSelectionRuns); got != 1 {
		t.Fatalf("expected 1 selection run recorded, got %d", got)
	}
	if got := metrics.GetHistogramValues(otel.MetricSelectionSelected); len(got) != 1 {
		t.Fatalf("expected 1 selected-count sample, got %d", len(got))
	}
	if got := metrics.GetCounterValue(otel.MetricSelectionErrors); got != 0 {
		t.Fatalf("expected no selection errors, got %d", got)
	}
}

// wordCounter implements selection.TokenCounter counting
// whitespace-separated words
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func TestLengthBudget_CustomTokenCounter(t *testing.T) {
	// Budgets are measured in whatever unit the counter provides:
	// four words here, even though every item is far over four runes.
	items := []candidate.Item{
		{ID: "a", Text: "wwwwwwwww xxxxxxxxx"},
		{ID: "b", Text: "yyyyyyyyy zzzzzzzzz"},
		{ID: "c", Text: "qqqqqqqqq"},
	}

	selector, err := selection.NewSelector(selection.NewLengthBudget(), items,
		selection.WithMaxLength(4),
		selection.WithTokenCounter(wordCounter{}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "aa bb")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items within the word budget, got %d", len(result.Items))
	}
	if result.Items[0].ID != "a" || result.Items[1].ID != "b" {
		t.Fatalf("expected [a b], got [%s %s]", result.Items[0].ID, result.Items[1].ID)
	}
}

func TestTiktokenCounter_TokenBudget(t *testing.T) {
	counter, err := selection.NewTiktokenCounter()
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	text := "the quick brown fox jumps over the lazy dog"
	tokens := counter.Count(text)
	if tokens <= 0 {
		t.Fatalf("expected positive token count, got %d", tokens)
	}
	if runes := len([]rune(text)); tokens >= runes {
		t.Fatalf("expected fewer tokens than runes, got %d tokens for %d runes", tokens, runes)
	}

	// The counter plugs into LengthBudget through the same option
	// as the rune counter.
	items := []candidate.Item{
		{ID: "a", Text: "short text"},
		{ID: "b", Text: "another short text"},
	}
	selector, err := selection.NewSelector(selection.NewLengthBudget(), items,
		selection.WithMaxLength(1000),
		selection.WithTokenCounter(counter))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "short")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected both items within a generous token budget, got %d", len(result.Items))
	}
}

func TestNGramOverlap_ChineseCharacterGranularity(t *testing.T) {
	// Contiguous Chinese text has no space-separated words; overlap
	// must be scored at character level.
	items := []candidate.Item{
		{ID: "food", Text: "北京美食推荐"},
		{ID: "traffic", Text: "上海交通状况"},
	}

	selector, err := selection.NewSelector(selection.NewNGramOverlap(), items)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	result, err := selector.Select(context.Background(), "北京的天气")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items (rank-only default), got %d", len(result.Items))
	}
	if result.Items[0].ID != "food" {
		t.Fatalf("expected character-overlapping item first, got %s", result.Items[0].ID)
	}
	if result.Items[0].Score <= 0 {
		t.Fatalf("expected positive overlap score for shared characters, got %v", result.Items[0].Score)
	}
	if result.Items[1].Score != 0 {
		t.Fatalf("expected zero score for disjoint characters, got %v", result.Items[1].Score)
	}
}
