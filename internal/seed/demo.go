// seed/demo.go
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/toeicquiz/backend/internal/auth"
	"github.com/toeicquiz/backend/internal/domain/questionbank"
	"github.com/toeicquiz/backend/internal/store"
)

// DemoQuestions is the bank loaded in demo mode. The reading record is
// compound and expands to two answerable questions.
func DemoQuestions() []questionbank.QuestionRecord {
	return []questionbank.QuestionRecord{
		{
			ID:           "vocab_demo_001",
			QuestionType: "vocabulary",
			Level:        "intermediate",
			Question:     "The company's new policy will _______ all employees starting next month.",
			Options:      []string{"effect", "affect", "infect", "defect"},
			Correct:      1,
			Explanation:  "Affect is a verb meaning 'to influence', while effect is a noun meaning 'result'.",
		},
		{
			ID:           "grammar_demo_001",
			QuestionType: "grammar",
			Level:        "intermediate",
			Question:     "The report _______ by the marketing team yesterday.",
			Options:      []string{"completed", "was completed", "has completed", "completes"},
			Correct:      1,
			Explanation:  "Passive voice in past tense: was/were + past participle.",
		},
		{
			ID:           "reading_demo_001",
			QuestionType: "reading",
			Level:        "intermediate",
			Passage: "To all staff: the third-floor meeting rooms will be closed on Friday for carpet " +
				"replacement. Please book rooms on the fifth floor instead. Bookings made before " +
				"Wednesday will be moved automatically.",
			SubQuestions: []questionbank.QuestionRecord{
				{
					Question:    "Why will the meeting rooms be closed?",
					Options:     []string{"A staff party", "New carpet", "A fire drill", "Painting"},
					Correct:     1,
					Explanation: "The notice mentions carpet replacement.",
				},
				{
					Question:    "What happens to bookings made before Wednesday?",
					Options:     []string{"They are cancelled", "They must be remade", "They are moved automatically", "They are charged"},
					Correct:     2,
					Explanation: "The last sentence says they will be moved automatically.",
					Level:       "advanced",
				},
			},
		},
	}
}

// Demo fills s with the settings, the demo bank and, when email is set,
// a learner account. Running it twice leaves a single copy of each.
func Demo(ctx context.Context, s store.DocumentStore, users *auth.LocalProvider, email, password string, logger *slog.Logger) error {
	if err := s.Set(ctx, questionbank.SettingsCollection, questionbank.SettingsDocumentID, questionbank.DefaultSettings()); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	questions := DemoQuestions()
	for _, q := range questions {
		if err := s.Set(ctx, questionbank.QuestionsCollection, q.ID, q); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}

	if email != "" {
		_, err := users.Register(ctx, email, password)
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			logger.Info("demo user already exists", "email", email)
		case err != nil:
			return fmt.Errorf("seed demo user: %w", err)
		}
	}

	logger.Info("demo data seeded", "questions", len(questions))
	return nil
}
