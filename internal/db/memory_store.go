package db

import (
	"context"
	"sync"

	"github.com/soaringjerry/SurveyForge/internal/models"
	"github.com/soaringjerry/SurveyForge/internal/services"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// "memory" store driver; data is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	surveys   map[string]*models.Survey
	order     []string // survey ids in insertion order
	responses []*models.Response
	chats     map[string][]models.ChatTurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]*models.User{},
		surveys: map[string]*models.Survey{},
		chats:   map[string][]models.ChatTurn{},
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error              { return nil }

func (s *MemoryStore) FindUser(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.PassHash = append([]byte(nil), u.PassHash...)
	return &cp, nil
}

func (s *MemoryStore) AddUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return services.ErrDuplicate
	}
	cp := *u
	cp.PassHash = append([]byte(nil), u.PassHash...)
	s.users[u.Username] = &cp
	return nil
}

func copySurvey(sv *models.Survey) *models.Survey {
	cp := *sv
	cp.Questions = make([]models.Question, len(sv.Questions))
	for i, q := range sv.Questions {
		q.Options = append([]string{}, q.Options...)
		cp.Questions[i] = q
	}
	return &cp
}

func (s *MemoryStore) InsertSurvey(_ context.Context, sv *models.Survey) (string, error) {
	cp := copySurvey(sv)
	cp.ID = models.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveys[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return cp.ID, nil
}

func (s *MemoryStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.surveys[id]
	if !ok {
		return nil, nil
	}
	return copySurvey(sv), nil
}

func (s *MemoryStore) listSurveys(limit int, keep func(*models.Survey) bool) []*models.Survey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Survey{}
	for _, id := range s.order {
		if len(out) >= limit {
			break
		}
		if sv, ok := s.surveys[id]; ok && keep(sv) {
			out = append(out, copySurvey(sv))
		}
	}
	return out
}

func (s *MemoryStore) ListSurveysByOwner(_ context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.listSurveys(limit, func(sv *models.Survey) bool { return sv.CreatedBy == owner }), nil
}

func (s *MemoryStore) ListSurveysNotOwnedBy(_ context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.listSurveys(limit, func(sv *models.Survey) bool { return sv.CreatedBy != owner }), nil
}

func (s *MemoryStore) DeleteSurvey(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[id]; !ok {
		return false, nil
	}
	delete(s.surveys, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStore) InsertResponse(_ context.Context, r *models.Response) (string, error) {
	cp := *r
	cp.ID = models.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, &cp)
	return cp.ID, nil
}

func (s *MemoryStore) ListResponsesBySurvey(_ context.Context, surveyID string, limit int) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Response{}
	for _, r := range s.responses {
		if len(out) >= limit {
			break
		}
		if r.SurveyID == surveyID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecentChatTurns(_ context.Context, username string, limit int) ([]models.ChatTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.chats[username]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.ChatTurn{}, all...), nil
}

func (s *MemoryStore) AppendChatTurns(_ context.Context, username string, turns ...models.ChatTurn) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[username] = append(s.chats[username], turns...)
	return len(s.chats[username]), nil
}
