package services

import (
	"context"
	"errors"
	"time"

	"github.com/soaringjerry/SurveyForge/internal/models"
)

// ResponseStore is append-only: there is no update or delete.
type ResponseStore interface {
	InsertResponse(ctx context.Context, r *models.Response) (string, error)
	ListResponsesBySurvey(ctx context.Context, surveyID string, limit int) ([]*models.Response, error)
}

// SurveyResponses is what the owner sees for one survey.
type SurveyResponses struct {
	Survey    *models.Survey     `json:"survey"`
	Responses []*models.Response `json:"responses"`
}

type ResponseService struct {
	store   ResponseStore
	surveys *SurveyService
	now     func() time.Time
}

func NewResponseService(store ResponseStore, surveys *SurveyService) *ResponseService {
	return &ResponseService{
		store:   store,
		surveys: surveys,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit accepts any authenticated respondent, including the survey owner. The
// survey id is not resolved and answer keys are not matched to questions.
func (s *ResponseService) Submit(ctx context.Context, surveyID, respondent string, answers map[string]any) (string, error) {
	if s.store == nil {
		return "", errors.New("response service store is nil")
	}
	if respondent == "" {
		return "", NewUnauthorizedError("Invalid token")
	}
	if answers == nil {
		answers = map[string]any{}
	}
	return s.store.InsertResponse(ctx, &models.Response{
		SurveyID:    surveyID,
		Answers:     answers,
		RespondedBy: respondent,
		SubmittedAt: s.now(),
	})
}

func (s *ResponseService) ListForSurvey(ctx context.Context, surveyID, requester string) (*SurveyResponses, error) {
	sv, err := s.surveys.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if sv.CreatedBy != requester {
		return nil, NewForbiddenError("Not allowed")
	}
	rs, err := s.store.ListResponsesBySurvey(ctx, surveyID, models.FetchLimit)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = []*models.Response{}
	}
	return &SurveyResponses{Survey: sv, Responses: rs}, nil
}
