package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizmatch/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL SQLSTATEs the store inspects.
const (
	uniqueViolation  = "23505"
	invalidTextInput = "22P02" // e.g. an id that is not a UUID
)

// Postgres is the PostgreSQL-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a store on pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// notFound maps pgx.ErrNoRows, and lookups by malformed ids, to ErrNotFound.
func notFound(err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == invalidTextInput) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

const jobColumns = `id::text, user_id, title, budget, daily_rate, work_days, skill_tags,
	carrier_tags, work_type, status, is_hot, created_at, updated_at`

func scanJob(row rowScanner) (*model.JobPost, error) {
	var j model.JobPost
	err := row.Scan(
		&j.ID, &j.UserID, &j.Title, &j.Budget, &j.DailyRate, &j.WorkDays, &j.SkillTags,
		&j.CarrierTags, &j.WorkType, &j.Status, &j.IsHot, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

// InsertJob stores j and fills in its timestamps.
func (p *Postgres) InsertJob(ctx context.Context, j *model.JobPost) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO job_posts (id, user_id, title, budget, daily_rate, work_days,
		                        skill_tags, carrier_tags, work_type, status, is_hot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		j.ID, j.UserID, j.Title, j.Budget, j.DailyRate, j.WorkDays,
		nonNil(j.SkillTags), nonNil(j.CarrierTags), string(j.WorkType), string(j.Status), j.IsHot,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob returns the job with id.
func (p *Postgres) GetJob(ctx context.Context, id string) (*model.JobPost, error) {
	j, err := scanJob(p.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM job_posts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// ListActiveJobs returns every active job, oldest first.
func (p *Postgres) ListActiveJobs(ctx context.Context) ([]model.JobPost, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM job_posts WHERE status = 'active' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listActiveJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.JobPost, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listActiveJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// SetJobHot sets the promotional flag on a job.
func (p *Postgres) SetJobHot(ctx context.Context, id string, hot bool) (*model.JobPost, error) {
	j, err := scanJob(p.pool.QueryRow(ctx,
		`UPDATE job_posts SET is_hot = $1, updated_at = NOW() WHERE id = $2 RETURNING `+jobColumns,
		hot, id,
	))
	if err != nil {
		return nil, fmt.Errorf("set job hot %s: %w", id, err)
	}
	return j, nil
}

// ─── Talent profiles ─────────────────────────────────────────────────────────

const talentColumns = `id::text, user_id, name, rate, experience_years, skills, carriers,
	work_type, availability, is_hot, created_at, updated_at`

func scanTalent(row rowScanner) (*model.TalentProfile, error) {
	var t model.TalentProfile
	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Rate, &t.ExperienceYears, &t.Skills, &t.Carriers,
		&t.WorkType, &t.Availability, &t.IsHot, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// InsertTalent stores t. A second profile for the same user is ErrConflict.
func (p *Postgres) InsertTalent(ctx context.Context, t *model.TalentProfile) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO talent_profiles (id, user_id, name, rate, experience_years, skills,
		                              carriers, work_type, availability, is_hot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Name, t.Rate, t.ExperienceYears, nonNil(t.Skills),
		nonNil(t.Carriers), string(t.WorkType), string(t.Availability), t.IsHot,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert talent for user %s: %w", t.UserID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert talent: %w", err)
	}
	return nil
}

// GetTalent returns the talent profile with id.
func (p *Postgres) GetTalent(ctx context.Context, id string) (*model.TalentProfile, error) {
	t, err := scanTalent(p.pool.QueryRow(ctx, `SELECT `+talentColumns+` FROM talent_profiles WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get talent %s: %w", id, err)
	}
	return t, nil
}

// FindTalentByUser returns the profile owned by userID.
func (p *Postgres) FindTalentByUser(ctx context.Context, userID string) (*model.TalentProfile, error) {
	t, err := scanTalent(p.pool.QueryRow(ctx, `SELECT `+talentColumns+` FROM talent_profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("find talent for user %s: %w", userID, err)
	}
	return t, nil
}

// ListAvailableTalents returns every available profile, oldest first.
func (p *Postgres) ListAvailableTalents(ctx context.Context) ([]model.TalentProfile, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+talentColumns+` FROM talent_profiles WHERE availability = 'available' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listAvailableTalents query: %w", err)
	}
	defer rows.Close()

	talents := make([]model.TalentProfile, 0)
	for rows.Next() {
		t, err := scanTalent(rows)
		if err != nil {
			return nil, fmt.Errorf("listAvailableTalents scan: %w", err)
		}
		talents = append(talents, *t)
	}
	return talents, rows.Err()
}

// SetTalentHot sets the promotional flag on a talent profile.
func (p *Postgres) SetTalentHot(ctx context.Context, id string, hot bool) (*model.TalentProfile, error) {
	t, err := scanTalent(p.pool.QueryRow(ctx,
		`UPDATE talent_profiles SET is_hot = $1, updated_at = NOW() WHERE id = $2 RETURNING `+talentColumns,
		hot, id,
	))
	if err != nil {
		return nil, fmt.Errorf("set talent hot %s: %w", id, err)
	}
	return t, nil
}

// ─── Matches ─────────────────────────────────────────────────────────────────

const matchColumns = `m.id::text, m.job_id::text, m.talent_id::text, m.proposer_id, m.message,
	m.status, m.assignment_type, m.created_at, m.updated_at`

func scanMatch(row rowScanner) (*model.Match, error) {
	var m model.Match
	err := row.Scan(
		&m.ID, &m.JobID, &m.TalentID, &m.ProposerID, &m.Message,
		&m.Status, &m.AssignmentType, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// InsertMatch stores m and fills in its timestamps.
func (p *Postgres) InsertMatch(ctx context.Context, m *model.Match) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO matches (id, job_id, talent_id, proposer_id, message, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		m.ID, m.JobID, m.TalentID, m.ProposerID, m.Message, string(m.Status),
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// GetMatch returns the match with id.
func (p *Postgres) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	m, err := scanMatch(p.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	return m, nil
}

// ListMatchesForUser returns the matches userID proposed or is a side of,
// newest first.
func (p *Postgres) ListMatchesForUser(ctx context.Context, userID string) ([]model.Match, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+matchColumns+`
		 FROM matches m
		 JOIN job_posts j ON j.id = m.job_id
		 JOIN talent_profiles t ON t.id = m.talent_id
		 WHERE m.proposer_id = $1 OR j.user_id = $1 OR t.user_id = $1
		 ORDER BY m.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listMatches query: %w", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("listMatches scan: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// UpdateMatchStatus moves a match from → to. It returns ErrConflict when the
// match is no longer in from.
func (p *Postgres) UpdateMatchStatus(ctx context.Context, id string, from, to model.MatchStatus) (*model.Match, error) {
	m, err := scanMatch(p.pool.QueryRow(ctx,
		`UPDATE matches m SET status = $1, updated_at = NOW()
		 WHERE m.id = $2 AND m.status = $3
		 RETURNING `+matchColumns,
		string(to), id, string(from),
	))
	if errors.Is(err, ErrNotFound) {
		return nil, p.matchMissingOrMoved(ctx, p.pool, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update match %s: %w", id, err)
	}
	return m, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// matchMissingOrMoved tells a missing match from one whose status changed.
func (p *Postgres) matchMissingOrMoved(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check match %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("match %s: %w", id, ErrConflict)
}

// ─── Assignments ─────────────────────────────────────────────────────────────

const assignmentColumns = `id::text, match_id::text, job_id::text, talent_id::text, client_user_id,
	talent_user_id, status, monthly_profit, total_profit, notes, created_at, updated_at`

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(
		&a.ID, &a.MatchID, &a.JobID, &a.TalentID, &a.ClientUserID,
		&a.TalentUserID, &a.Status, &a.MonthlyProfit, &a.TotalProfit, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// GetAssignment returns the assignment with id.
func (p *Postgres) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := scanAssignment(p.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return a, nil
}

// FindAssignmentByMatch returns the assignment created from matchID.
func (p *Postgres) FindAssignmentByMatch(ctx context.Context, matchID string) (*model.Assignment, error) {
	a, err := scanAssignment(p.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE match_id = $1`, matchID))
	if err != nil {
		return nil, fmt.Errorf("find assignment for match %s: %w", matchID, err)
	}
	return a, nil
}

// ListAssignmentsForUser returns the assignments userID is a party to,
// newest first.
func (p *Postgres) ListAssignmentsForUser(ctx context.Context, userID string) ([]model.Assignment, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE client_user_id = $1 OR talent_user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listAssignments query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("listAssignments scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// CreateContract atomically moves the match from accepted to contracted,
// records assignmentType, inserts a (or keeps the assignment that already
// references the match) and marks the job assigned. It returns the persisted
// assignment.
func (p *Postgres) CreateContract(ctx context.Context, matchID, assignmentType string, a *model.Assignment) (*model.Assignment, error) {
	var saved *model.Assignment
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE matches SET status = 'contracted', assignment_type = $1, updated_at = NOW()
			 WHERE id = $2 AND status = 'accepted'`,
			assignmentType, matchID,
		)
		if err != nil {
			return fmt.Errorf("update match: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return p.matchMissingOrMoved(ctx, tx, matchID)
		}

		saved, err = scanAssignment(tx.QueryRow(ctx,
			`INSERT INTO assignments (id, match_id, job_id, talent_id, client_user_id, talent_user_id,
			                          status, monthly_profit, total_profit, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (match_id) DO NOTHING
			 RETURNING `+assignmentColumns,
			a.ID, matchID, a.JobID, a.TalentID, a.ClientUserID, a.TalentUserID,
			string(a.Status), a.MonthlyProfit, a.TotalProfit, a.Notes,
		))
		if errors.Is(err, ErrNotFound) {
			saved, err = scanAssignment(tx.QueryRow(ctx,
				`SELECT `+assignmentColumns+` FROM assignments WHERE match_id = $1`, matchID))
		}
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE job_posts SET status = 'assigned', updated_at = NOW() WHERE id = $1`,
			saved.JobID,
		); err != nil {
			return fmt.Errorf("mark job assigned: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create contract for match %s: %w", matchID, err)
	}
	return saved, nil
}

// UpdateAssignmentStatus moves an assignment from → to. It returns
// ErrConflict when the assignment is no longer in from.
func (p *Postgres) UpdateAssignmentStatus(ctx context.Context, id string, from, to model.AssignmentStatus) (*model.Assignment, error) {
	a, err := scanAssignment(p.pool.QueryRow(ctx,
		`UPDATE assignments SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING `+assignmentColumns,
		string(to), id, string(from),
	))
	if errors.Is(err, ErrNotFound) {
		var exists bool
		if qerr := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assignments WHERE id = $1)`, id).Scan(&exists); qerr != nil {
			return nil, fmt.Errorf("check assignment %s: %w", id, qerr)
		}
		if exists {
			return nil, fmt.Errorf("assignment %s: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update assignment %s: %w", id, err)
	}
	return a, nil
}

// UpdateAssignmentNotes replaces the free-text notes on an assignment.
func (p *Postgres) UpdateAssignmentNotes(ctx context.Context, id, notes string) (*model.Assignment, error) {
	a, err := scanAssignment(p.pool.QueryRow(ctx,
		`UPDATE assignments SET notes = $1, updated_at = NOW() WHERE id = $2 RETURNING `+assignmentColumns,
		notes, id,
	))
	if err != nil {
		return nil, fmt.Errorf("update assignment notes %s: %w", id, err)
	}
	return a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
