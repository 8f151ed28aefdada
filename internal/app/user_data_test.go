package app_test

import (
	"context"
	"errors"
	"testing"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(catalog(2))

	session, err := service.Start(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		play(t, service, session.ID(), "A")
		if _, _, err := service.Advance(ctx, session.ID()); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	bundle, err := service.Export(ctx, "u1", app.ExportAll)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if bundle.User == nil || bundle.User.XP != 20 || len(bundle.QuizHistory) != 1 || len(bundle.Achievements) != 4 {
		t.Fatalf("unexpected bundle %+v", bundle)
	}
	if !bundle.ExportDate.Equal(now) {
		t.Fatalf("unexpected export date %v", bundle.ExportDate)
	}

	if err := service.Import(ctx, "u2", bundle); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := service.Profile(ctx, "u2"); got.XP != 20 {
		t.Fatalf("profile not imported: %+v", got)
	}
	if got := service.History(ctx, "u2"); len(got) != 1 {
		t.Fatalf("history not imported: %+v", got)
	}
}

func TestExportSingleSection(t *testing.T) {
	service, _, _ := newTestService(catalog(1))

	bundle, err := service.Export(context.Background(), "u1", app.ExportHistory)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if bundle.User != nil || bundle.Achievements != nil || bundle.QuizHistory == nil {
		t.Fatalf("expected history only, got %+v", bundle)
	}

	if _, err := service.Export(context.Background(), "u1", "everything"); !errors.Is(err, domain.ErrInvalidImport) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestImportRejectsUnknownType(t *testing.T) {
	service, _, _ := newTestService(catalog(1))

	err := service.Import(context.Background(), "u1", app.Bundle{Type: "settings"})
	if !errors.Is(err, domain.ErrInvalidImport) {
		t.Fatalf("expected invalid import, got %v", err)
	}
	err = service.Import(context.Background(), "u1", app.Bundle{Type: app.ExportProgress})
	if !errors.Is(err, domain.ErrInvalidImport) {
		t.Fatalf("expected invalid import for empty progress bundle, got %v", err)
	}
}

func TestImportTrimsHistory(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(catalog(1))

	history := make([]domain.QuizResult, domain.HistoryLimit+5)
	for i := range history {
		history[i].Score = i
	}
	if err := service.Import(ctx, "u1", app.Bundle{Type: app.ExportHistory, QuizHistory: history}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	got := service.History(ctx, "u1")
	if len(got) != domain.HistoryLimit || got[0].Score != 5 {
		t.Fatalf("expected newest %d results, got %d starting at %d", domain.HistoryLimit, len(got), got[0].Score)
	}
}

func TestResetKeepsAchievementsAndName(t *testing.T) {
	ctx := context.Background()
	service, _, store := newTestService(catalog(1))

	session, err := service.Start(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	play(t, service, session.ID(), "A")
	if _, _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	state := app.NewUserState(store, "u1")
	profile := service.Profile(ctx, "u1")
	profile.Name = "Miriam"
	if err := state.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	if err := service.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	got := service.Profile(ctx, "u1")
	if got.Name != "Miriam" || got.XP != 0 || got.Streak != 0 || got.Level != "Beginner" {
		t.Fatalf("unexpected profile after reset %+v", got)
	}
	if history := service.History(ctx, "u1"); len(history) != 0 {
		t.Fatalf("history not cleared: %+v", history)
	}
	if _, err := service.LastResult(ctx, "u1"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("last result not cleared, got %v", err)
	}
	if !service.Achievements(ctx, "u1")[0].Unlocked {
		t.Fatalf("achievements must survive a reset")
	}
}

func TestDeleteUserAndTheme(t *testing.T) {
	ctx := context.Background()
	service, _, store := newTestService(catalog(1))

	if got := service.Theme(ctx, "u1"); got != domain.ThemeLight {
		t.Fatalf("expected light default, got %q", got)
	}
	if err := service.SetTheme(ctx, "u1", domain.ThemeDark); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if err := service.SetTheme(ctx, "u1", "sepia"); err == nil {
		t.Fatalf("expected unknown theme to be rejected")
	}
	if got := service.Theme(ctx, "u1"); got != domain.ThemeDark {
		t.Fatalf("expected dark, got %q", got)
	}

	if err := service.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	for _, key := range app.AllKeys {
		if _, err := store.Get(ctx, "u1", key); !errors.Is(err, domain.ErrStateNotFound) {
			t.Fatalf("key %s survived delete: %v", key, err)
		}
	}
}

func TestStatsFromService(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(catalog(1))

	if stats := service.Stats(ctx, "u1"); stats.TotalQuizzes != 0 || stats.LastScore != nil {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	session, err := service.Start(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	play(t, service, session.ID(), "A")
	if _, _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	stats := service.Stats(ctx, "u1")
	if stats.TotalQuizzes != 1 || *stats.LastScore != 10 || *stats.MonthlyAccuracy != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
