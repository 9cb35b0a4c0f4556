package attempt

import (
	"time"

	"github.com/toeicquiz/backend/internal/domain/questionbank"
)

// Collection is where attempt records live in the document store.
const Collection = "quiz_attempts"

// NoAnswer marks a question the learner did not answer.
const NoAnswer = -1

// Record is a finished quiz attempt. It snapshots the questions so a review
// stays reproducible after the bank changes.
type Record struct {
	ID              string                            `json:"-" bson:"-"`
	UserID          string                            `json:"userId" bson:"userId"`
	UserEmail       string                            `json:"userEmail" bson:"userEmail"`
	Timestamp       time.Time                         `json:"timestamp" bson:"timestamp"`
	Score           int                               `json:"score" bson:"score"`
	TotalQuestions  int                               `json:"totalQuestions" bson:"totalQuestions"`
	ScorePercentage float64                           `json:"scorePercentage" bson:"scorePercentage"`
	UserAnswers     []int                             `json:"userAnswers" bson:"userAnswers"`
	Questions       []questionbank.AnswerableQuestion `json:"questions" bson:"questions"`
}

// Result is the outcome of scoring a set of answers.
type Result struct {
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
}

// Score counts the answers matching each question's correct index. Answers
// missing past the end of the slice count as incorrect.
func Score(questions []questionbank.AnswerableQuestion, answers []int) Result {
	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			correct++
		}
	}
	return Result{
		Score:          correct,
		TotalQuestions: len(questions),
		Percentage:     Percentage(correct, len(questions)),
	}
}

// Percentage returns 100*score/total, or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// PadAnswers returns a copy of answers extended with NoAnswer up to n entries.
func PadAnswers(answers []int, n int) []int {
	size := n
	if len(answers) > size {
		size = len(answers)
	}
	padded := make([]int, size)
	copy(padded, answers)
	for i := len(answers); i < size; i++ {
		padded[i] = NoAnswer
	}
	return padded
}

// NewRecord builds the persisted record for a finished quiz.
func NewRecord(userID, email string, at time.Time, questions []questionbank.AnswerableQuestion, answers []int) Record {
	res := Score(questions, answers)

	snapshot := make([]questionbank.AnswerableQuestion, len(questions))
	copy(snapshot, questions)

	return Record{
		UserID:          userID,
		UserEmail:       email,
		Timestamp:       at,
		Score:           res.Score,
		TotalQuestions:  res.TotalQuestions,
		ScorePercentage: res.Percentage,
		UserAnswers:     PadAnswers(answers, len(questions)),
		Questions:       snapshot,
	}
}
