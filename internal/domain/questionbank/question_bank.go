package questionbank

import "fmt"

// Collection names used by the question bank in the document store.
const (
	QuestionsCollection = "toeic_questions"
	SettingsCollection  = "settings"
	SettingsDocumentID  = "config"
)

// DefaultTestTimeMinutes applies when the settings document is missing.
const DefaultTestTimeMinutes = 120

// QuestionRecord is a question as stored in the bank. A record carrying
// SubQuestions is compound (reading / cloze) and is never answered directly.
type QuestionRecord struct {
	ID           string           `json:"id" bson:"id"`
	QuestionType string           `json:"questionType" bson:"questionType"`
	Level        string           `json:"level,omitempty" bson:"level,omitempty"`
	Question     string           `json:"question,omitempty" bson:"question,omitempty"`
	Passage      string           `json:"passage,omitempty" bson:"passage,omitempty"`
	Options      []string         `json:"options,omitempty" bson:"options,omitempty"`
	Correct      int              `json:"correct" bson:"correct"`
	Explanation  string           `json:"explanation,omitempty" bson:"explanation,omitempty"`
	SubQuestions []QuestionRecord `json:"questions,omitempty" bson:"questions,omitempty"`
}

// IsCompound reports whether the record bundles sub-questions under one passage.
func (r QuestionRecord) IsCompound() bool {
	return r.SubQuestions != nil
}

// AnswerableQuestion is the flattened unit presented to the learner.
type AnswerableQuestion struct {
	DisplayText  string   `json:"displayText" bson:"displayText"`
	Passage      string   `json:"passage,omitempty" bson:"passage,omitempty"`
	Options      []string `json:"options" bson:"options"`
	CorrectIndex int      `json:"correctIndex" bson:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty" bson:"explanation,omitempty"`
	SourceID     string   `json:"sourceId" bson:"sourceId"`
	QuestionType string   `json:"questionType,omitempty" bson:"questionType,omitempty"`
	Level        string   `json:"level,omitempty" bson:"level,omitempty"`
}

// Settings is the single global quiz settings document.
type Settings struct {
	TestTimeMinutes int `json:"testTimeMinutes" bson:"testTimeMinutes"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{TestTimeMinutes: DefaultTestTimeMinutes}
}

// Normalize flattens records into answerable questions. Compound records
// expand in place into one item per sub-question, numbered from 1 and
// carrying the parent's passage. The output order follows the input order.
func Normalize(records []QuestionRecord) []AnswerableQuestion {
	out := make([]AnswerableQuestion, 0, len(records))
	for _, r := range records {
		if !r.IsCompound() {
			out = append(out, AnswerableQuestion{
				DisplayText:  r.Question,
				Passage:      r.Passage,
				Options:      r.Options,
				CorrectIndex: r.Correct,
				Explanation:  r.Explanation,
				SourceID:     r.ID,
				QuestionType: r.QuestionType,
				Level:        r.Level,
			})
			continue
		}

		for i, sub := range r.SubQuestions {
			level := sub.Level
			if level == "" {
				level = r.Level
			}
			out = append(out, AnswerableQuestion{
				DisplayText:  fmt.Sprintf("%d. %s", i+1, sub.Question),
				Passage:      r.Passage,
				Options:      sub.Options,
				CorrectIndex: sub.Correct,
				Explanation:  sub.Explanation,
				SourceID:     r.ID,
				QuestionType: r.QuestionType,
				Level:        level,
			})
		}
	}
	return out
}
