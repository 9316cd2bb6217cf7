package retrieval_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/retrieval"
	"github.com/easyops/contextpipe-go/pkg/selection"
)

// retrieverFunc adapts a function to the Retriever interface.
type retrieverFunc func(ctx context.Context, query string, topK int) ([]candidate.Item, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
	return f(ctx, query, topK)
}

// refinerFunc adapts a function to the Refiner interface.
type refinerFunc func(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error)

func (f refinerFunc) Refine(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	return f(ctx, pool)
}

func TestNewContextRetriever_Validation(t *testing.T) {
	if _, err := retrieval.NewContextRetriever(nil); err == nil {
		t.Fatal("expected error for nil base retriever")
	}

	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return nil, nil
	})
	if _, err := retrieval.NewContextRetriever(base, retrieval.WithTopK(0)); err == nil {
		t.Fatal("expected error for topK 0")
	}
}

func TestContextRetriever_SingleQueryDeduplicates(t *testing.T) {
	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return []candidate.Item{
			{ID: "a", Text: "alpha"},
			{ID: "b", Text: "beta"},
			{ID: "a", Text: "alpha again"},
		}, nil
	})

	retriever, err := retrieval.NewContextRetriever(base)
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	result, err := retriever.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if result.Partial {
		t.Fatal("expected complete result")
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(result.Items))
	}
	if result.Items[0].ID != "a" || result.Items[0].Text != "alpha" {
		t.Fatalf("expected first occurrence of 'a' kept, got %+v", result.Items[0])
	}
}

func TestContextRetriever_MultiQueryFusion(t *testing.T) {
	llm := &stubLLM{response: "variant one\nvariant two"}
	transformer := retrieval.NewMultiQueryTransformer(llm, retrieval.WithNumQueries(2))

	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		switch {
		case query == "query":
			return []candidate.Item{{ID: "a", Text: "alpha"}, {ID: "b", Text: "beta"}}, nil
		case strings.HasPrefix(query, "variant"):
			return []candidate.Item{{ID: "b", Text: "beta"}, {ID: "c", Text: "gamma"}}, nil
		default:
			return nil, nil
		}
	})

	retriever, err := retrieval.NewContextRetriever(base,
		retrieval.WithQueryTransformer(transformer),
		retrieval.WithFusion(retrieval.NewRRFFusion(60)),
	)
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	result, err := retriever.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 fused items, got %d", len(result.Items))
	}
	// "b" is returned by every sub-query and should rank first.
	if result.Items[0].ID != "b" {
		t.Fatalf("expected 'b' ranked first, got %s", result.Items[0].ID)
	}
}

func TestContextRetriever_SelectionRefiner(t *testing.T) {
	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return []candidate.Item{
			{ID: "a", Text: "how to train neural networks"},
			{ID: "b", Text: "recipe for chocolate cake"},
			{ID: "c", Text: "training deep neural networks"},
		}, nil
	})

	retriever, err := retrieval.NewContextRetriever(base,
		retrieval.WithSelection(selection.NewNGramOverlap(), selection.WithK(2)),
	)
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	result, err := retriever.Retrieve(context.Background(), "train neural networks")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 selected items, got %d", len(result.Items))
	}
	for _, item := range result.Items {
		if item.ID == "b" {
			t.Fatal("expected unrelated item 'b' to be dropped")
		}
	}
}

func TestContextRetriever_RefinerError(t *testing.T) {
	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return []candidate.Item{{ID: "a", Text: "alpha"}}, nil
	})

	refiner := refinerFunc(func(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
		return nil, context.DeadlineExceeded
	})

	retriever, err := retrieval.NewContextRetriever(base, retrieval.WithRefiner(refiner))
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	if _, err := retriever.Retrieve(context.Background(), "query"); err == nil {
		t.Fatal("expected refiner error to propagate")
	}
}

func TestContextRetriever_CancellationReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	retriever, err := retrieval.NewContextRetriever(base)
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	result, err := retriever.Retrieve(ctx, "query")
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if !result.Partial {
		t.Fatal("expected Partial flag set")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected cancellation warning")
	}
}

func TestContextRetriever_RefineCancellationKeepsUnrefined(t *testing.T) {
	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return []candidate.Item{{ID: "a", Text: "alpha"}, {ID: "b", Text: "beta"}}, nil
	})

	refiner := refinerFunc(func(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
		return nil, errors.ErrContextCanceled
	})

	retriever, err := retrieval.NewContextRetriever(base, retrieval.WithRefiner(refiner))
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	result, err := retriever.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if !result.Partial {
		t.Fatal("expected Partial flag set")
	}
	// The unrefined candidates survive as the completed prefix.
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 unrefined items, got %d", len(result.Items))
	}
}

func TestContextRetriever_RetrieveAsync(t *testing.T) {
	base := retrieverFunc(func(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
		return []candidate.Item{{ID: "a", Text: "alpha"}}, nil
	})

	retriever, err := retrieval.NewContextRetriever(base)
	if err != nil {
		t.Fatalf("NewContextRetriever failed: %v", err)
	}

	select {
	case res := <-retriever.RetrieveAsync(context.Background(), "query"):
		if res.Err != nil {
			t.Fatalf("async retrieve failed: %v", res.Err)
		}
		if len(res.Result.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(res.Result.Items))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for async result")
	}
}
