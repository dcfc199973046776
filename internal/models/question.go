package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is one exam question, objective ("objective") or essay
// ("theory"). JSON columns hold the option list, nested sub-questions and
// worked solution steps as imported.
type Question struct {
	ID            string         `gorm:"size:64;primaryKey" json:"id"`
	Exam          string         `gorm:"size:50;index:idx_questions_exam_year_subject" json:"exam"`
	Year          int            `gorm:"index:idx_questions_exam_year_subject" json:"year"`
	Subject       string         `gorm:"size:100;index:idx_questions_exam_year_subject" json:"subject"`
	Paper         string         `gorm:"size:50" json:"paper"`
	Section       string         `gorm:"size:50" json:"section"`
	QType         string         `gorm:"column:qtype;size:20;not null;index" json:"type"`
	SortKey       *int           `gorm:"index" json:"-"`
	Page          int            `json:"page"`
	Marks         int            `json:"marks"`
	QuestionText  string         `gorm:"type:text;not null" json:"question_text"`
	Options       datatypes.JSON `gorm:"type:jsonb" json:"options"`
	Answer        string         `gorm:"type:text" json:"answer"`
	Explanation   string         `gorm:"type:text" json:"explanation"`
	SubQuestions  datatypes.JSON `gorm:"type:jsonb" json:"sub_questions"`
	SolutionSteps datatypes.JSON `gorm:"type:jsonb" json:"solution_steps"`
	Diagrams      datatypes.JSON `gorm:"type:jsonb" json:"diagrams"`
	CreatedAt     time.Time      `json:"-"`
	UpdatedAt     time.Time      `json:"-"`
}
