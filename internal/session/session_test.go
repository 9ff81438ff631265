package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/internal/selector"
)

type fakeInvoker struct {
	mu      sync.Mutex
	calls   []llm.Request
	respond func(req llm.Request) (llm.Response, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeInvoker) lastCall() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func pipelineRespond(req llm.Request) (llm.Response, error) {
	switch req.Component {
	case "selection":
		return llm.Response{Text: `{"deep_reasoning":false,"complexity":"moderate"}`}, nil
	case "divergence":
		return llm.Response{Text: `[{"title":"S","approach":"a","core_assumption":"c"}]`}, nil
	case "critique":
		return llm.Response{Text: `{"strengths":["ok"]}`}, nil
	case "synthesis":
		return llm.Response{Text: `{"blueprint":"the plan","objective":"o","tone":"t"}`}, nil
	case "final":
		return llm.Response{Text: "the answer"}, nil
	}
	return llm.Response{}, errors.New("unexpected component " + req.Component)
}

func TestRun_PipelinePath(t *testing.T) {
	inv := &fakeInvoker{respond: pipelineRespond}
	r := NewRunner(inv, persona.Builtin(), Options{})

	out, err := r.Run(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Engine != selector.EnginePipeline {
		t.Errorf("Engine = %q, want pipeline", out.Engine)
	}
	if out.Answer != "the answer" {
		t.Errorf("Answer = %q", out.Answer)
	}
	if out.Degraded {
		t.Error("Degraded = true on a clean run")
	}
	if out.Trace == nil || out.Trace.Requests == 0 {
		t.Error("pipeline run should carry a trace")
	}

	final := inv.lastCall()
	if final.Component != "final" {
		t.Fatalf("last call component = %q, want final", final.Component)
	}
	if !strings.Contains(final.Prompt, "the plan") {
		t.Error("final prompt should be the engineered prompt, not the bare query")
	}
}

func TestRun_ForceDeepUsesTree(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		switch req.Component {
		case "decomposition":
			return llm.Response{Text: `{"should_decompose":false,"reasoning":"atomic","sub_problems":[]}`}, nil
		default:
			return pipelineRespond(req)
		}
	}
	r := NewRunner(inv, persona.Builtin(), Options{ForceDeep: true, MaxDepth: 3})

	out, err := r.Run(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Engine != selector.EngineTree {
		t.Errorf("Engine = %q, want tree", out.Engine)
	}
	if out.TreeState == nil {
		t.Fatal("tree run should carry the terminal tree state")
	}

	// ForceDeep skips classification.
	inv.mu.Lock()
	for _, c := range inv.calls {
		if c.Component == "selection" {
			t.Error("forced deep mode should not classify")
		}
	}
	inv.mu.Unlock()
}

func TestRun_ReasoningFailure_DegradesToBareQuery(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		switch req.Component {
		case "selection":
			return llm.Response{Text: `{"deep_reasoning":false,"complexity":"moderate"}`}, nil
		case "final":
			return llm.Response{Text: "plain answer"}, nil
		default:
			return llm.Response{}, errors.New("reasoning backend down")
		}
	}
	r := NewRunner(inv, persona.Builtin(), Options{})

	out, err := r.Run(context.Background(), "my question", nil)
	if err != nil {
		t.Fatalf("reasoning failure must not fail the session: %v", err)
	}

	if !out.Degraded {
		t.Error("Degraded = false, want true")
	}
	if out.Answer != "plain answer" {
		t.Errorf("Answer = %q", out.Answer)
	}
	if got := inv.lastCall().Prompt; got != "my question" {
		t.Errorf("final prompt = %q, want the bare query", got)
	}
}

func TestRun_FinalCompletionFailure_IsAnError(t *testing.T) {
	inv := &fakeInvoker{}
	inv.respond = func(req llm.Request) (llm.Response, error) {
		if req.Component == "final" {
			return llm.Response{}, errors.New("no tokens left")
		}
		return pipelineRespond(req)
	}
	r := NewRunner(inv, persona.Builtin(), Options{})

	_, err := r.Run(context.Background(), "q", nil)
	if err == nil {
		t.Fatal("final completion failure should be returned")
	}
}

func TestRun_HistoryReachesDivergence(t *testing.T) {
	inv := &fakeInvoker{respond: pipelineRespond}
	r := NewRunner(inv, persona.Builtin(), Options{})

	history := []Turn{{Query: "earlier question", Answer: "earlier answer"}}
	if _, err := r.Run(context.Background(), "follow-up", history); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, c := range inv.calls {
		if c.Component == "divergence" {
			if !strings.Contains(c.Prompt, "earlier question") {
				t.Error("divergence prompt should carry the history digest")
			}
			return
		}
	}
	t.Fatal("no divergence request issued")
}

func TestDigestHistory_TruncatesAndLimits(t *testing.T) {
	long := strings.Repeat("x", 1000)
	var history []Turn
	for i := 0; i < 10; i++ {
		history = append(history, Turn{Query: "q", Answer: long})
	}

	digest := digestHistory(history)
	if got := strings.Count(digest, "User:"); got != historyDigestLimit {
		t.Errorf("digest holds %d turns, want %d", got, historyDigestLimit)
	}
	if !strings.Contains(digest, "...") {
		t.Error("long answers should be truncated")
	}
	if digestHistory(nil) != "" {
		t.Error("empty history should digest to empty string")
	}
}
