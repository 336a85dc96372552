package recommend

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuestionLabel     = "label"
	QuestionTextfield = "textfield"
	QuestionTextarea  = "textarea"
	QuestionRadio     = "radio"
)

// Textfield prefill hints stored in AddInfo.
const (
	PrefillNone  = ""
	PrefillEmail = "email"
	PrefillName  = "name"
)

func QuestionTypes() []string {
	return []string{QuestionLabel, QuestionRadio, QuestionTextarea, QuestionTextfield}
}

func ValidQuestionType(t string) bool {
	switch t {
	case QuestionLabel, QuestionRadio, QuestionTextarea, QuestionTextfield:
		return true
	}
	return false
}

// Question is one element of the recommendation form. SortOrder is dense and
// zero-based per activity; it is only ever changed through the question
// repo's SetSortOrder.
type Question struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID     uuid.UUID  `gorm:"type:uuid;not null;column:activity_id;index:idx_recommend_question_order,priority:1" json:"activity_id"`
	Type           string     `gorm:"column:type;not null" json:"type"`
	Question       string     `gorm:"column:question;type:text" json:"question"`
	QuestionFormat TextFormat `gorm:"column:question_format;not null" json:"question_format"`
	AddInfo        string     `gorm:"column:add_info;type:text" json:"add_info"`
	SortOrder      int        `gorm:"column:sort_order;not null;index:idx_recommend_question_order,priority:2" json:"sort_order"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "recommend_question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// QuestionOption is one choice of a radio question.
type QuestionOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Options parses AddInfo of a radio question: one "key/text" pair per
// non-empty line, split on the first slash.
func (q *Question) Options() []QuestionOption {
	if q == nil || q.Type != QuestionRadio {
		return nil
	}
	var out []QuestionOption
	for _, line := range strings.Split(strings.ReplaceAll(q.AddInfo, "\r\n", "\n"), "\n") {
		if line == "" {
			continue
		}
		key, text, found := strings.Cut(line, "/")
		if !found {
			text = ""
		}
		out = append(out, QuestionOption{Key: key, Text: text})
	}
	return out
}

// HasOption reports whether key is one of the radio option keys.
func (q *Question) HasOption(key string) bool {
	for _, o := range q.Options() {
		if o.Key == key {
			return true
		}
	}
	return false
}
