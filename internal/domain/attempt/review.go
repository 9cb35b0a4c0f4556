package attempt

import "github.com/toeicquiz/backend/internal/domain/questionbank"

// ReviewItem is the per-question breakdown of a finished attempt.
type ReviewItem struct {
	Index        int
	Question     questionbank.AnswerableQuestion
	UserAnswer   int
	CorrectIndex int
	IsCorrect    bool
}

// Answered reports whether the learner picked an option.
func (it ReviewItem) Answered() bool {
	return it.UserAnswer > NoAnswer
}

// UserAnswerLabel renders the chosen option as a letter.
func (it ReviewItem) UserAnswerLabel() string {
	if !it.Answered() {
		return "unanswered"
	}
	return OptionLabel(it.UserAnswer)
}

// OptionLabel maps an option index to A, B, C ...
func OptionLabel(i int) string {
	if i < 0 {
		return ""
	}
	return string(rune('A' + i))
}

// Review is an attempt rebuilt for display.
type Review struct {
	AttemptID   string
	StoredScore int
	Correct     int
	Items       []ReviewItem
}

// Consistent reports whether the recount matches the score stored at attempt time.
func (r Review) Consistent() bool {
	return r.Correct == r.StoredScore
}

// Reconstruct rebuilds the breakdown of a persisted attempt. Answers missing
// from older records are treated as unanswered.
func Reconstruct(rec Record) Review {
	review := Review{
		AttemptID:   rec.ID,
		StoredScore: rec.Score,
		Items:       make([]ReviewItem, len(rec.Questions)),
	}

	for i, q := range rec.Questions {
		answer := NoAnswer
		if i < len(rec.UserAnswers) {
			answer = rec.UserAnswers[i]
		}
		item := ReviewItem{
			Index:        i,
			Question:     q,
			UserAnswer:   answer,
			CorrectIndex: q.CorrectIndex,
			IsCorrect:    answer == q.CorrectIndex,
		}
		if item.IsCorrect {
			review.Correct++
		}
		review.Items[i] = item
	}

	return review
}
