package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"portfolio-api/internal/models"
)

type fakeAttempter struct {
	results map[string]attemptResult
	calls   []string
	seen    [][]models.Message
}

type attemptResult struct {
	reply string
	err   error
}

func (f *fakeAttempter) Attempt(ctx context.Context, model string, messages []models.Message) (string, error) {
	f.calls = append(f.calls, model)
	f.seen = append(f.seen, messages)
	res := f.results[model]
	return res.reply, res.err
}

func conversation() []models.Message {
	return []models.Message{
		{Role: models.RoleUser, Content: "who are you?"},
		{Role: models.RoleAssistant, Content: "the portfolio assistant"},
		{Role: models.RoleUser, Content: "what can you do?"},
	}
}

func TestCompleteStopsAtFirstSuccess(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {reply: "hello"},
	}}
	gw := New(fake, []string{"model-a", "model-b", "model-c"}, "be helpful")

	reply, err := gw.Complete(context.Background(), conversation())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q, want %q", reply, "hello")
	}
	if len(fake.calls) != 1 || fake.calls[0] != "model-a" {
		t.Errorf("calls = %v, want exactly [model-a]", fake.calls)
	}
}

func TestCompleteFallsBackInConfiguredOrder(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {err: errors.New("rate limited")},
		"model-b": {err: errors.New("not found")},
		"model-c": {reply: "third time lucky"},
	}}
	gw := New(fake, []string{"model-a", "model-b", "model-c"}, "be helpful")

	reply, err := gw.Complete(context.Background(), conversation())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "third time lucky" {
		t.Errorf("reply = %q, want result from last candidate", reply)
	}

	want := []string{"model-a", "model-b", "model-c"}
	if fmt.Sprint(fake.calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
}

func TestCompleteAbortsOnAuthRejection(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {err: ErrAuthRejected},
	}}
	gw := New(fake, []string{"model-a", "model-b", "model-c"}, "be helpful")

	_, err := gw.Complete(context.Background(), conversation())
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("error = %v, want ErrAuthRejected", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("calls = %v, auth rejection must not try further candidates", fake.calls)
	}
}

func TestCompleteReportsExhaustionWithLastError(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {err: errors.New("first failure")},
		"model-b": {err: errors.New("second failure")},
		"model-c": {err: errors.New("final failure")},
	}}
	gw := New(fake, []string{"model-a", "model-b", "model-c"}, "be helpful")

	_, err := gw.Complete(context.Background(), conversation())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	if !strings.Contains(err.Error(), "final failure") {
		t.Errorf("error %q should carry the last candidate's failure", err)
	}
	if len(fake.calls) != 3 {
		t.Errorf("calls = %v, want all three candidates attempted exactly once", fake.calls)
	}
}

func TestCompletePrependsSystemInstruction(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {reply: "ok"},
	}}
	gw := New(fake, []string{"model-a"}, "fixed persona")

	callerMessages := conversation()
	if _, err := gw.Complete(context.Background(), callerMessages); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	sent := fake.seen[0]
	if len(sent) != len(callerMessages)+1 {
		t.Fatalf("sent %d messages, want %d", len(sent), len(callerMessages)+1)
	}
	if sent[0].Role != models.RoleSystem || sent[0].Content != "fixed persona" {
		t.Errorf("messages[0] = %+v, want the fixed system instruction", sent[0])
	}
	for i, msg := range callerMessages {
		if sent[i+1] != msg {
			t.Errorf("messages[%d] = %+v, want caller message %+v unmodified", i+1, sent[i+1], msg)
		}
	}
}

func TestCompletePrependsSystemInstructionToEmptyConversation(t *testing.T) {
	fake := &fakeAttempter{results: map[string]attemptResult{
		"model-a": {reply: "ok"},
	}}
	gw := New(fake, []string{"model-a"}, "fixed persona")

	if _, err := gw.Complete(context.Background(), nil); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	sent := fake.seen[0]
	if len(sent) != 1 || sent[0].Role != models.RoleSystem {
		t.Errorf("sent = %+v, want only the system instruction", sent)
	}
}

func TestCompleteStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fake := &cancellingAttempter{cancel: cancel}
	gw := New(fake, []string{"model-a", "model-b", "model-c"}, "be helpful")

	_, err := gw.Complete(ctx, conversation())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, cancellation must abandon remaining candidates", fake.calls)
	}
}

type cancellingAttempter struct {
	cancel context.CancelFunc
	calls  int
}

func (a *cancellingAttempter) Attempt(ctx context.Context, model string, messages []models.Message) (string, error) {
	a.calls++
	a.cancel()
	return "", ctx.Err()
}

func TestCompleteWithNoCandidatesIsExhausted(t *testing.T) {
	gw := New(&fakeAttempter{}, nil, "be helpful")

	_, err := gw.Complete(context.Background(), conversation())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
}
