package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/pkg/metrics"
)

// Table names of the assessment database. They predate this service.
const (
	evaluationsTable = "avaliations"
	answersTable     = "answers"
	itemsTable       = "itens"
	questionsTable   = "questions"
)

// Store operation names, used as metric labels.
const (
	opFindEvaluation     = "find_evaluation"
	opPrimaryAnswers     = "primary_answers"
	opProgressionAnswers = "progression_answers"
	opQuestions          = "questions"
	opCount              = "count"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads assessment data from Postgres.
//
// Tables:
//   - <schema>.avaliations (id, client_fk, scale_fk, created_at)
//   - <schema>.answers (avaliation_fk, question_fk, item_fk)
//   - <schema>.itens (id, score)
//   - <schema>.questions (id, scale_fk, item_order, content, domain, color)
type PostgresStore struct {
	db     Querier
	schema string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over db (usually a *pgxpool.Pool) reading
// tables from schema.
func NewPostgresStore(db Querier, schema string) (*PostgresStore, error) {
	if strings.TrimSpace(schema) == "" {
		return nil, ErrSchemaRequired
	}
	quoted, err := quoteIdent(schema)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, schema: quoted}, nil
}

func quoteIdent(ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return "", fmt.Errorf("empty identifier: %w", ErrInvalidIdentifier)
	}
	for _, r := range ident {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "", fmt.Errorf("%q: %w", ident, ErrInvalidIdentifier)
	}
	return `"` + ident + `"`, nil
}

func (s *PostgresStore) table(name string) string {
	return s.schema + "." + name
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreQuery(op, float64(time.Since(start).Microseconds())/1000, err)
}

// FindEvaluation implements recommend.Source.
func (s *PostgresStore) FindEvaluation(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) (_ model.Evaluation, _ bool, err error) {
	defer func(start time.Time) { observe(opFindEvaluation, start, err) }(time.Now())

	q := fmt.Sprintf(`
		SELECT id, client_fk, scale_fk, created_at
		FROM %s
		WHERE client_fk = @client AND id = @evaluation AND scale_fk = @scale
	`, s.table(evaluationsTable))

	var e model.Evaluation
	err = s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"client":     int64(subject),
		"evaluation": int64(eval),
		"scale":      int64(scale),
	}).Scan(&e.ID, &e.Subject, &e.Scale, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Evaluation{}, false, nil
	}
	if err != nil {
		return model.Evaluation{}, false, fmt.Errorf("find evaluation %d: %w", eval, err)
	}
	return e, true, nil
}

// answerSelect selects one row per answer, joined to its item score.
func (s *PostgresStore) answerSelect() string {
	return fmt.Sprintf(`
		SELECT
			a.id AS avaliationid,
			a.client_fk,
			q.id AS questionid,
			i.score::float8 AS score,
			a.created_at AS timestamp
		FROM %s a
		INNER JOIN %s ans ON a.id = ans.avaliation_fk
		INNER JOIN %s i ON i.id = ans.item_fk
		INNER JOIN %s q ON q.id = ans.question_fk`,
		s.table(evaluationsTable), s.table(answersTable), s.table(itemsTable), s.table(questionsTable))
}

// PrimaryAnswers implements recommend.Source.
func (s *PostgresStore) PrimaryAnswers(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) (_ []model.Answer, err error) {
	defer func(start time.Time) { observe(opPrimaryAnswers, start, err) }(time.Now())

	q := s.answerSelect() + `
		WHERE q.scale_fk = @scale
		  AND (a.client_fk <> @client OR a.id = @evaluation)
		ORDER BY a.id, q.id`

	return s.queryAnswers(ctx, q, pgx.NamedArgs{
		"client":     int64(subject),
		"evaluation": int64(eval),
		"scale":      int64(scale),
	})
}

// ProgressionAnswers implements recommend.Source.
func (s *PostgresStore) ProgressionAnswers(ctx context.Context, after model.EvaluationID, subject model.SubjectID, scale model.ScaleID) (_ []model.Answer, err error) {
	defer func(start time.Time) { observe(opProgressionAnswers, start, err) }(time.Now())

	q := s.answerSelect() + `
		WHERE a.id > @after
		  AND a.client_fk = @client
		  AND q.scale_fk = @scale
		ORDER BY a.id, q.id`

	return s.queryAnswers(ctx, q, pgx.NamedArgs{
		"after":  int64(after),
		"client": int64(subject),
		"scale":  int64(scale),
	})
}

func (s *PostgresStore) queryAnswers(ctx context.Context, sql string, args pgx.NamedArgs) ([]model.Answer, error) {
	rows, err := s.db.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.Evaluation, &a.Subject, &a.Question, &a.Score, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Questions implements recommend.Source.
func (s *PostgresStore) Questions(ctx context.Context, scale model.ScaleID) (_ []model.Question, err error) {
	defer func(start time.Time) { observe(opQuestions, start, err) }(time.Now())

	q := fmt.Sprintf(`
		SELECT id, scale_fk, item_order, content, COALESCE(domain, ''), COALESCE(color, '')
		FROM %s
		WHERE scale_fk = @scale
		ORDER BY item_order, id
	`, s.table(questionsTable))

	rows, err := s.db.Query(ctx, q, pgx.NamedArgs{"scale": int64(scale)})
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var qu model.Question
		if err := rows.Scan(&qu.ID, &qu.Scale, &qu.DisplayOrder, &qu.Content, &qu.Domain, &qu.Color); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

// Count returns the number of evaluations.
func (s *PostgresStore) Count(ctx context.Context) (_ int, err error) {
	defer func(start time.Time) { observe(opCount, start, err) }(time.Now())

	var n int64
	if err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table(evaluationsTable))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return int(n), nil
}
