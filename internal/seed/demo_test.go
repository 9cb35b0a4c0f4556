package seed_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/toeicquiz/backend/internal/auth"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
	"github.com/toeicquiz/backend/internal/seed"
	"github.com/toeicquiz/backend/internal/store"
)

func TestDemo_SeedsBankSettingsAndUser(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := auth.NewLocalProvider(s, logger)

	for i := 0; i < 2; i++ {
		if err := seed.Demo(ctx, s, users, "student@demo.com", "demo", logger); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	snaps, err := s.List(ctx, questionbank.QuestionsCollection)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != len(seed.DemoQuestions()) {
		t.Errorf("expected %d questions, got %d", len(seed.DemoQuestions()), len(snaps))
	}

	snap, err := s.Get(ctx, questionbank.SettingsCollection, questionbank.SettingsDocumentID)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	var settings questionbank.Settings
	snap.DataTo(&settings)
	if settings.TestTimeMinutes != 120 {
		t.Errorf("expected 120 minutes, got %d", settings.TestTimeMinutes)
	}

	if _, err := users.SignIn(ctx, "student@demo.com", "demo"); err != nil {
		t.Errorf("expected demo user to sign in, got %v", err)
	}
}

func TestDemoQuestions_Normalize(t *testing.T) {
	got := questionbank.Normalize(seed.DemoQuestions())

	if len(got) != 4 {
		t.Fatalf("expected 4 answerable questions, got %d", len(got))
	}
	if got[0].SourceID != "vocab_demo_001" || got[0].CorrectIndex != 1 {
		t.Errorf("unexpected first question: %+v", got[0])
	}
	if got[2].DisplayText != "1. Why will the meeting rooms be closed?" {
		t.Errorf("unexpected numbering: %q", got[2].DisplayText)
	}
	if got[3].Level != "advanced" || got[2].Level != "intermediate" {
		t.Errorf("unexpected levels: %q %q", got[2].Level, got[3].Level)
	}
}
