package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/easyops/contextpipe-go/pkg/retrieval"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (l *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func TestMultiQueryTransformer_ExpandsQuery(t *testing.T) {
	llm := &stubLLM{response: "How do neural networks learn?\nWhat is backpropagation?\nExplain gradient descent"}
	transformer := retrieval.NewMultiQueryTransformer(llm)

	queries, err := transformer.Transform(context.Background(), "how does deep learning work")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// Original plus three expansions.
	if len(queries) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(queries))
	}
	if queries[0].Source != "original" || queries[0].Query != "how does deep learning work" {
		t.Fatalf("expected original query first, got %+v", queries[0])
	}
	for _, q := range queries[1:] {
		if q.Source != "expanded" {
			t.Fatalf("expected expanded source, got %s", q.Source)
		}
		if q.Weight != 1.0 {
			t.Fatalf("expected weight 1.0, got %.2f", q.Weight)
		}
	}
}

func TestMultiQueryTransformer_StripsNumberPrefixes(t *testing.T) {
	llm := &stubLLM{response: "1. First variant\n2) Second variant\n3: Third variant"}
	transformer := retrieval.NewMultiQueryTransformer(llm, retrieval.WithIncludeOriginal(false))

	queries, err := transformer.Transform(context.Background(), "query")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	want := []string{"First variant", "Second variant", "Third variant"}
	if len(queries) != len(want) {
		t.Fatalf("expected %d queries, got %d", len(want), len(queries))
	}
	for i, q := range queries {
		if q.Query != want[i] {
			t.Fatalf("expected %q, got %q", want[i], q.Query)
		}
	}
}

func TestMultiQueryTransformer_LLMFailureFallsBack(t *testing.T) {
	llm := &stubLLM{err: errors.New("provider unavailable")}
	transformer := retrieval.NewMultiQueryTransformer(llm)

	queries, err := transformer.Transform(context.Background(), "original query")
	if err != nil {
		t.Fatalf("expected graceful fallback, got error: %v", err)
	}
	if len(queries) != 1 || queries[0].Query != "original query" {
		t.Fatalf("expected single original query, got %+v", queries)
	}
}

func TestMultiQueryTransformer_UnparsableOutputFallsBack(t *testing.T) {
	llm := &stubLLM{response: "\n\n  \n"}
	transformer := retrieval.NewMultiQueryTransformer(llm, retrieval.WithIncludeOriginal(false))

	queries, err := transformer.Transform(context.Background(), "original query")
	if err != nil {
		t.Fatalf("expected graceful fallback, got error: %v", err)
	}
	if len(queries) != 1 || queries[0].Source != "fallback" {
		t.Fatalf("expected fallback query, got %+v", queries)
	}
}

func TestMultiQueryTransformer_LimitsExpansions(t *testing.T) {
	llm := &stubLLM{response: "one\ntwo\nthree\nfour\nfive"}
	transformer := retrieval.NewMultiQueryTransformer(llm, retrieval.WithNumQueries(2))

	queries, err := transformer.Transform(context.Background(), "query")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	// Original plus two expansions, extra lines discarded.
	if len(queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(queries))
	}
}

func TestMultiQueryTransformer_SkipsDuplicateOfOriginal(t *testing.T) {
	llm := &stubLLM{response: "query\nanother variant"}
	transformer := retrieval.NewMultiQueryTransformer(llm)

	queries, err := transformer.Transform(context.Background(), "query")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for _, q := range queries[1:] {
		if q.Query == "query" {
			t.Fatal("expected expansion identical to original to be skipped")
		}
	}
}
