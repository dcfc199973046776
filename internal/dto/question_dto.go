package dto

import "github.com/exampartner/backend/internal/models"

type QuestionListResponse struct {
	Items  []models.Question `json:"items"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type FiltersResponse struct {
	OK       bool     `json:"ok"`
	Exams    []string `json:"exams"`
	Years    []int    `json:"years"`
	Subjects []string `json:"subjects"`
}
