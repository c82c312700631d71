package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/SurveyForge/internal/models"
	"github.com/soaringjerry/SurveyForge/internal/services"
)

type SQLiteStore struct {
	db  *sql.DB
	log logrus.FieldLogger
}

func NewSQLiteStore(db *sql.DB, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, log: logger.WithField("store", "sqlite")}, nil
}

// OpenSQLite opens the database file at path, applies pending migrations and
// returns a ready store.
func OpenSQLite(ctx context.Context, path, migrationsDir string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store, err := NewSQLiteStore(conn, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	applied, err := RunMigrations(ctx, conn, migrationsDir)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if len(applied) > 0 {
		store.log.WithField("migrations", applied).Info("applied migrations")
	}
	return store, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteStore) Close() error                   { return s.db.Close() }

func isConstraintDuplicate(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func (s *SQLiteStore) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PassHash, u.CreatedAt.UTC(),
	)
	if isConstraintDuplicate(err) {
		return services.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertSurvey(ctx context.Context, sv *models.Survey) (string, error) {
	questions := sv.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}
	id := models.NewID()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO surveys (id, title, description, questions, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sv.Title, sv.Description, string(raw), sv.CreatedBy, sv.CreatedAt.UTC(),
	); err != nil {
		return "", fmt.Errorf("insert survey: %w", err)
	}
	return id, nil
}

const surveyColumns = `id, title, description, questions, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var (
		sv  models.Survey
		raw string
	)
	if err := row.Scan(&sv.ID, &sv.Title, &sv.Description, &raw, &sv.CreatedBy, &sv.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &sv.Questions); err != nil {
		return nil, fmt.Errorf("decode questions for survey %s: %w", sv.ID, err)
	}
	return &sv, nil
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return sv, nil
}

func (s *SQLiteStore) querySurveys(ctx context.Context, query string, args ...any) ([]*models.Survey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()
	out := []*models.Survey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListSurveysByOwner(ctx context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.querySurveys(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE created_by = ? ORDER BY rowid LIMIT ?`, owner, limit)
}

func (s *SQLiteStore) ListSurveysNotOwnedBy(ctx context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.querySurveys(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE created_by <> ? ORDER BY rowid LIMIT ?`, owner, limit)
}

func (s *SQLiteStore) DeleteSurvey(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete survey: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertResponse(ctx context.Context, r *models.Response) (string, error) {
	answers := r.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	id := models.NewID()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (id, survey_id, answers, responded_by, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		id, r.SurveyID, string(raw), r.RespondedBy, r.SubmittedAt.UTC(),
	); err != nil {
		return "", fmt.Errorf("insert response: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListResponsesBySurvey(ctx context.Context, surveyID string, limit int) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, survey_id, answers, responded_by, submitted_at FROM responses WHERE survey_id = ? ORDER BY rowid LIMIT ?`,
		surveyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	out := []*models.Response{}
	for rows.Next() {
		var (
			r         models.Response
			raw       string
			submitted time.Time
		)
		if err := rows.Scan(&r.ID, &r.SurveyID, &raw, &r.RespondedBy, &submitted); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.SubmittedAt = submitted
		if err := json.Unmarshal([]byte(raw), &r.Answers); err != nil {
			s.log.WithError(err).WithField("response_id", r.ID).Warn("undecodable answers")
			r.Answers = map[string]any{}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentChatTurns(ctx context.Context, username string, limit int) ([]models.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM chat_turns WHERE username = ? ORDER BY seq DESC LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chat turns: %w", err)
	}
	defer rows.Close()
	turns := []models.ChatTurn{}
	for rows.Next() {
		var t models.ChatTurn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// newest first from the query; callers want chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *SQLiteStore) AppendChatTurns(ctx context.Context, username string, turns ...models.ChatTurn) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append chat turns: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, t := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns (username, role, content) VALUES (?, ?, ?)`, username, t.Role, t.Content,
		); err != nil {
			return 0, fmt.Errorf("append chat turn: %w", err)
		}
	}
	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM chat_turns WHERE username = ?`, username).Scan(&total); err != nil {
		return 0, fmt.Errorf("count chat turns: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit chat turns: %w", err)
	}
	return total, nil
}
