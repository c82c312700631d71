package services

import (
	"context"
	"strings"
	"time"

	"github.com/soaringjerry/SurveyForge/internal/models"
)

type SurveyStore interface {
	InsertSurvey(ctx context.Context, sv *models.Survey) (string, error)
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	ListSurveysByOwner(ctx context.Context, owner string, limit int) ([]*models.Survey, error)
	ListSurveysNotOwnedBy(ctx context.Context, owner string, limit int) ([]*models.Survey, error)
	// DeleteSurvey reports false when nothing was removed.
	DeleteSurvey(ctx context.Context, id string) (bool, error)
}

// SurveyPayload is the client-controlled part of a survey; id and owner are
// never taken from it.
type SurveyPayload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []models.Question `json:"questions"`
}

type SurveyService struct {
	store SurveyStore
	now   func() time.Time
}

const surveyNotFound = "Survey not found"

func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create validates shape only. Question type and options are accepted as given,
// so a yes/no question with five options is stored unchanged.
func (s *SurveyService) Create(ctx context.Context, owner string, in SurveyPayload) (string, error) {
	if owner == "" {
		return "", NewUnauthorizedError("Invalid token")
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", NewInvalidError("title required")
	}
	if len(in.Questions) == 0 {
		return "", NewInvalidError("at least one question required")
	}
	questions := make([]models.Question, 0, len(in.Questions))
	for _, q := range in.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return "", NewInvalidError("question text required")
		}
		if strings.TrimSpace(q.Type) == "" {
			return "", NewInvalidError("question type required")
		}
		if q.Options == nil {
			q.Options = []string{}
		}
		questions = append(questions, q)
	}
	sv := &models.Survey{
		Title:       in.Title,
		Description: in.Description,
		Questions:   questions,
		CreatedBy:   owner,
		CreatedAt:   s.now(),
	}
	return s.store.InsertSurvey(ctx, sv)
}

func (s *SurveyService) ListOwned(ctx context.Context, owner string) ([]*models.Survey, error) {
	return s.store.ListSurveysByOwner(ctx, owner, models.FetchLimit)
}

// ListOthers is the "discover surveys to answer" view.
func (s *SurveyService) ListOthers(ctx context.Context, owner string) ([]*models.Survey, error) {
	return s.store.ListSurveysNotOwnedBy(ctx, owner, models.FetchLimit)
}

func (s *SurveyService) Get(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewNotFoundError(surveyNotFound)
	}
	return sv, nil
}

// Delete checks existence before ownership. Responses to the survey are kept.
func (s *SurveyService) Delete(ctx context.Context, id, requester string) error {
	sv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sv.CreatedBy != requester {
		return NewForbiddenError("Not allowed")
	}
	removed, err := s.store.DeleteSurvey(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return NewNotFoundError(surveyNotFound)
	}
	return nil
}
