package selector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ponderhq/ponder/internal/llm"
)

type fakeInvoker struct {
	calls []llm.Request
	text  string
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, req llm.Request) (llm.Response, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text}, nil
}

func TestSelect_ForceDeep_NoRequest(t *testing.T) {
	inv := &fakeInvoker{}
	s := New(inv, "")

	if got := s.Select(context.Background(), "q", true, ""); got != EngineTree {
		t.Errorf("Select = %q, want tree", got)
	}
	if len(inv.calls) != 0 {
		t.Errorf("issued %d requests, want 0", len(inv.calls))
	}
}

func TestSelect_ComplexQuery_PicksTree(t *testing.T) {
	inv := &fakeInvoker{text: `{"deep_reasoning":true,"complexity":"complex","reasoning":"multi-part"}`}
	s := New(inv, "")

	if got := s.Select(context.Background(), "compare three frameworks", false, "software questions"); got != EngineTree {
		t.Errorf("Select = %q, want tree", got)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("issued %d requests, want 1", len(inv.calls))
	}
	if !strings.Contains(inv.calls[0].Prompt, "software questions") {
		t.Error("classifier prompt should carry the domain hint")
	}
	if !strings.Contains(inv.calls[0].Prompt, "compare three frameworks") {
		t.Error("classifier prompt should carry the query")
	}
}

func TestSelect_TrivialComplexity_PicksPipeline(t *testing.T) {
	inv := &fakeInvoker{text: `{"deep_reasoning":true,"complexity":"trivial","reasoning":"easy"}`}
	s := New(inv, "")

	if got := s.Select(context.Background(), "what time is it", false, ""); got != EnginePipeline {
		t.Errorf("Select = %q, want pipeline for trivial complexity", got)
	}
}

func TestSelect_NoDeepReasoning_PicksPipeline(t *testing.T) {
	inv := &fakeInvoker{text: `{"deep_reasoning":false,"complexity":"complex","reasoning":"single pass"}`}
	s := New(inv, "")

	if got := s.Select(context.Background(), "q", false, ""); got != EnginePipeline {
		t.Errorf("Select = %q, want pipeline without deep-reasoning affirmation", got)
	}
}

func TestSelect_FailuresFallBackToPipeline(t *testing.T) {
	byError := New(&fakeInvoker{err: errors.New("down")}, "")
	if got := byError.Select(context.Background(), "q", false, ""); got != EnginePipeline {
		t.Errorf("Select on error = %q, want pipeline", got)
	}

	byParse := New(&fakeInvoker{text: "shrug"}, "")
	if got := byParse.Select(context.Background(), "q", false, ""); got != EnginePipeline {
		t.Errorf("Select on parse failure = %q, want pipeline", got)
	}
}
