package services

import (
	"context"
	"errors"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/models"
	"gorm.io/gorm"
)

// ErrPreviewLimitReached means an unpaid caller has paged past the free
// sample; handlers map it to 402.
var ErrPreviewLimitReached = errors.New("free preview limit reached")

var ErrQuestionNotFound = errors.New("question not found")

type QuestionService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewQuestionService(db *gorm.DB, cfg *config.Config) *QuestionService {
	return &QuestionService{db: db, cfg: cfg}
}

// QuestionQuery is one page of the catalog.
type QuestionQuery struct {
	QType   string
	Exam    string
	Year    int
	Subject string
	Limit   int
	Offset  int
}

// List returns a page of questions. Unpaid callers get a capped preview:
// objective questions up to FreeSampleLimitObjective rows total, theory up
// to FreeSampleLimitTheory, regardless of paging.
func (s *QuestionService) List(ctx context.Context, q QuestionQuery, paidActive bool) (*dto.QuestionListResponse, error) {
	q.Limit = clampLimit(q.Limit, 20, 100)

	if !paidActive {
		freeCap := s.cfg.FreeSampleLimitObjective
		if q.QType == "theory" {
			freeCap = s.cfg.FreeSampleLimitTheory
		}
		var ok bool
		if q.Limit, ok = clampPreview(q.Limit, q.Offset, freeCap); !ok {
			return nil, ErrPreviewLimitReached
		}
	}

	tx := s.db.WithContext(ctx).Model(&models.Question{}).Where("qtype = ?", q.QType)
	if q.Exam != "" {
		tx = tx.Where("exam = ?", q.Exam)
	}
	if q.Year != 0 {
		tx = tx.Where("year = ?", q.Year)
	}
	if q.Subject != "" {
		tx = tx.Where("subject = ?", q.Subject)
	}

	var items []models.Question
	err := tx.Order("COALESCE(sort_key, 999999999), id").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &dto.QuestionListResponse{Items: items, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// Filters returns the distinct exams, years and subjects available for
// the given narrowing, for the catalog filter dropdowns.
func (s *QuestionService) Filters(ctx context.Context, qtype, exam string, year int) (*dto.FiltersResponse, error) {
	resp := &dto.FiltersResponse{OK: true, Exams: []string{}, Years: []int{}, Subjects: []string{}}

	examsTx := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("exam IS NOT NULL AND TRIM(exam) <> ''")
	if qtype != "" {
		examsTx = examsTx.Where("qtype = ?", qtype)
	}
	if err := examsTx.Distinct().Order("exam").Pluck("exam", &resp.Exams).Error; err != nil {
		return nil, err
	}

	yearsTx := s.db.WithContext(ctx).Model(&models.Question{}).Where("year IS NOT NULL")
	if qtype != "" {
		yearsTx = yearsTx.Where("qtype = ?", qtype)
	}
	if exam != "" {
		yearsTx = yearsTx.Where("exam = ?", exam)
	}
	if err := yearsTx.Distinct().Order("year DESC").Pluck("year", &resp.Years).Error; err != nil {
		return nil, err
	}

	subjectsTx := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("subject IS NOT NULL AND TRIM(subject) <> ''")
	if qtype != "" {
		subjectsTx = subjectsTx.Where("qtype = ?", qtype)
	}
	if exam != "" {
		subjectsTx = subjectsTx.Where("exam = ?", exam)
	}
	if year != 0 {
		subjectsTx = subjectsTx.Where("year = ?", year)
	}
	if err := subjectsTx.Distinct().Order("subject").Pluck("subject", &resp.Subjects).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// clampPreview restricts a page to the free sample. Returns false once the
// offset is already past the cap.
func clampPreview(limit, offset, freeCap int) (int, bool) {
	if offset >= freeCap {
		return 0, false
	}
	if remaining := freeCap - offset; limit > remaining {
		limit = remaining
	}
	return limit, true
}
