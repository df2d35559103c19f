package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var submissionColumns = []string{
	"id",
	"user_first_name",
	"user_last_name",
	"user_email",
	"answer_1",
	"answer_2",
	"answer_3",
	"analysis",
	"completed_modules",
	"total_modules",
	"created_at",
}

// submissionRepo implements SubmissionRepo on SQLite.
type submissionRepo struct {
	drv *entsql.Driver
}

func (r *submissionRepo) Insert(ctx context.Context, sub *Submission) (*Submission, error) {
	rec := *sub
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	rec.Answers = compactAnswers(sub.Answers)
	rec.Analysis = blankToNil(rec.Analysis)

	query, args := builder().Insert(submissionsTable).
		Columns(submissionColumns...).
		Values(
			rec.ID,
			rec.FirstName,
			rec.LastName,
			rec.Email,
			rec.answerColumn(1),
			rec.answerColumn(2),
			rec.answerColumn(3),
			rec.Analysis,
			rec.CompletedModules,
			rec.TotalModules,
			rec.CreatedAt.UnixNano(),
		).Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return &rec, nil
}

func (r *submissionRepo) Get(ctx context.Context, id string) (*Submission, error) {
	b := builder()
	query, args := b.Select(submissionColumns...).
		From(b.Table(submissionsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	subs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return subs[0], nil
}

func (r *submissionRepo) List(ctx context.Context, opts ListOpts) ([]*Submission, error) {
	b := builder()
	sel := b.Select(submissionColumns...).
		From(b.Table(submissionsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("rowid"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	subs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (r *submissionRepo) SetAnalysis(ctx context.Context, id, analysis string) (bool, error) {
	query, args := builder().Update(submissionsTable).
		Set("analysis", analysis).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.Or(entsql.IsNull("analysis"), entsql.ExprP("TRIM(analysis) = ''")),
		)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("update analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update analysis: rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *submissionRepo) query(ctx context.Context, query string, args []any) ([]*Submission, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		var (
			sub       Submission
			answers   [QuestionCount]sql.NullString
			analysis  sql.NullString
			createdAt int64
		)
		err := rows.Scan(
			&sub.ID,
			&sub.FirstName,
			&sub.LastName,
			&sub.Email,
			&answers[0],
			&answers[1],
			&answers[2],
			&analysis,
			&sub.CompletedModules,
			&sub.TotalModules,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}

		sub.Answers = make(Answers)
		for i, a := range answers {
			if a.Valid {
				sub.Answers[i+1] = a.String
			}
		}
		if analysis.Valid {
			sub.Analysis = &analysis.String
		}
		sub.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, &sub)
	}
	return out, rows.Err()
}

// compactAnswers drops blank answers and indices outside 1..QuestionCount.
func compactAnswers(in Answers) Answers {
	out := make(Answers, len(in))
	for i, a := range in {
		if i < 1 || i > QuestionCount || strings.TrimSpace(a) == "" {
			continue
		}
		out[i] = a
	}
	return out
}
