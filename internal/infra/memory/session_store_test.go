package memory

import (
	"testing"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	session := app.NewSession("s1", "u1", domain.DefaultSessionConfig(), nil)

	store.Save(session)
	got, ok := store.Get("s1")
	if !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", store.Len())
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
