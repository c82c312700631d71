package services

import (
	"context"
	"reflect"
	"testing"
)

func TestSubmitWithoutSurveyCheck(t *testing.T) {
	ctx := context.Background()
	store := newStubSurveyStore()
	svc := NewResponseService(store, NewSurveyService(store))

	answers := map[string]any{"Like it?": "yes", "Colours": []any{"red", "blue"}, "Score": float64(4), "Ok": true}
	id, err := svc.Submit(ctx, "does-not-exist", "bob", answers)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected response id")
	}
	if len(store.responses) != 1 {
		t.Fatalf("responses stored = %d, want 1", len(store.responses))
	}
	got := store.responses[0]
	if got.SurveyID != "does-not-exist" || got.RespondedBy != "bob" {
		t.Fatalf("unexpected response %+v", got)
	}
	if !reflect.DeepEqual(got.Answers, answers) {
		t.Fatalf("answers = %v, want %v", got.Answers, answers)
	}
}

func TestSubmitNilAnswersStoredEmpty(t *testing.T) {
	store := newStubSurveyStore()
	svc := NewResponseService(store, NewSurveyService(store))
	if _, err := svc.Submit(context.Background(), "S", "bob", nil); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if store.responses[0].Answers == nil {
		t.Fatalf("expected empty answers map, got nil")
	}
}

func TestListForSurveyOwnership(t *testing.T) {
	ctx := context.Background()
	store := newStubSurveyStore()
	surveys := NewSurveyService(store)
	svc := NewResponseService(store, surveys)

	id, _ := surveys.Create(ctx, "alice", samplePayload("Q1"))
	if _, err := svc.Submit(ctx, id, "bob", map[string]any{"Like it?": "yes"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Submit(ctx, id, "alice", map[string]any{"Like it?": "no"}); err != nil {
		t.Fatalf("owner Submit: %v", err)
	}
	if _, err := svc.Submit(ctx, "other", "bob", map[string]any{}); err != nil {
		t.Fatalf("Submit other: %v", err)
	}

	if _, err := svc.ListForSurvey(ctx, id, "bob"); !HasCode(err, ErrorForbidden) {
		t.Fatalf("non-owner list: expected forbidden, got %v", err)
	}
	if _, err := svc.ListForSurvey(ctx, "missing", "alice"); !HasCode(err, ErrorNotFound) {
		t.Fatalf("missing survey: expected not found, got %v", err)
	}

	out, err := svc.ListForSurvey(ctx, id, "alice")
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if out.Survey.ID != id {
		t.Fatalf("survey id = %q, want %q", out.Survey.ID, id)
	}
	if len(out.Responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(out.Responses))
	}
}

func TestListForSurveyEmptyIsNotNil(t *testing.T) {
	ctx := context.Background()
	store := newStubSurveyStore()
	surveys := NewSurveyService(store)
	svc := NewResponseService(store, surveys)
	id, _ := surveys.Create(ctx, "alice", samplePayload("Q1"))
	out, err := svc.ListForSurvey(ctx, id, "alice")
	if err != nil {
		t.Fatalf("ListForSurvey: %v", err)
	}
	if out.Responses == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestOrphanedResponsesSurviveDelete(t *testing.T) {
	ctx := context.Background()
	store := newStubSurveyStore()
	surveys := NewSurveyService(store)
	svc := NewResponseService(store, surveys)
	id, _ := surveys.Create(ctx, "alice", samplePayload("Q1"))
	_, _ = svc.Submit(ctx, id, "bob", map[string]any{"Like it?": "yes"})
	if err := surveys.Delete(ctx, id, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rs, _ := store.ListResponsesBySurvey(ctx, id, 100)
	if len(rs) != 1 {
		t.Fatalf("orphaned responses = %d, want 1", len(rs))
	}
}
