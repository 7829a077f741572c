package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db     *sql.DB
	policy EligibilityPolicy
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithEligibilityPolicy sets the benefit predicate. The default is
// ModeExhaustedFlag over every billing account.
func WithEligibilityPolicy(p EligibilityPolicy) Option {
	return func(s *SQLite) { s.policy = p }
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string, opts ...Option) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; remediation workers share this handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLite{db: db, policy: EligibilityPolicy{Mode: ModeExhaustedFlag}}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.Mode != ModeExhaustedFlag && s.policy.Mode != ModeBillingStatus {
		db.Close()
		return nil, fmt.Errorf("unknown eligibility mode %q", s.policy.Mode)
	}
	return s, nil
}

func (s *SQLite) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var id any
	if user.ID != 0 {
		id = user.ID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, contact_email, limit_override_usd, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, user.Username, user.ContactEmail, nullFloat(user.LimitOverrideUSD), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if user.ID == 0 {
		if user.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read user id: %w", err)
		}
	}
	return nil
}

const userColumns = `id, username, contact_email, limit_override_usd, created_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u        model.User
		override sql.NullFloat64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.ContactEmail, &override, &u.CreatedAt); err != nil {
		return model.User{}, err
	}
	if override.Valid {
		v := override.Float64
		u.LimitOverrideUSD = &v
	}
	return u, nil
}

func (s *SQLite) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLite) GetUsers(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	in, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (s *SQLite) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLite) SetLimitOverride(ctx context.Context, id int64, limitUSD *float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET limit_override_usd = ? WHERE id = ?`, nullFloat(limitUSD), id)
	if err != nil {
		return fmt.Errorf("set limit override: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateWorkspace(ctx context.Context, ws *model.Workspace) error {
	if ws.BillingStatus == "" {
		ws.BillingStatus = model.BillingActive
	}
	ws.UpdatedAt = time.Now().UTC()

	var id any
	if ws.ID != 0 {
		id = ws.ID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, namespace, google_project, billing_account, creator_id, active,
		   billing_status, initial_credits_exhausted, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ws.Namespace, ws.GoogleProject, ws.BillingAccount, ws.CreatorID, ws.Active,
		ws.BillingStatus, ws.InitialCreditsExhausted, ws.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if ws.ID == 0 {
		if ws.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read workspace id: %w", err)
		}
	}
	return nil
}

const workspaceColumns = `id, namespace, google_project, billing_account, creator_id, active,
	billing_status, initial_credits_exhausted, updated_at`

func scanWorkspaces(rows *sql.Rows) ([]model.Workspace, error) {
	defer rows.Close()
	var out []model.Workspace
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Namespace, &ws.GoogleProject, &ws.BillingAccount, &ws.CreatorID,
			&ws.Active, &ws.BillingStatus, &ws.InitialCreditsExhausted, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace row: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (s *SQLite) ListWorkspacesByCreator(ctx context.Context, creatorID int64) ([]model.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE creator_id = ? ORDER BY id`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return scanWorkspaces(rows)
}

func (s *SQLite) RecordedCosts(ctx context.Context, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	in, args := inClause(ids)
	return s.queryCosts(ctx, `SELECT user_id, cost_usd FROM user_costs WHERE user_id IN `+in, args, out)
}

func (s *SQLite) AllRecordedCosts(ctx context.Context) (map[int64]float64, error) {
	return s.queryCosts(ctx, `SELECT user_id, cost_usd FROM user_costs`, nil, map[int64]float64{})
}

func (s *SQLite) queryCosts(ctx context.Context, query string, args []any, out map[int64]float64) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recorded costs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			cost float64
		)
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, fmt.Errorf("scan cost row: %w", err)
		}
		out[id] = cost
	}
	return out, rows.Err()
}

func (s *SQLite) SaveRecordedCosts(ctx context.Context, costs map[int64]float64) error {
	if len(costs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save costs: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for id, cost := range costs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_costs (user_id, cost_usd, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET cost_usd = excluded.cost_usd, updated_at = excluded.updated_at`,
			id, cost, now,
		); err != nil {
			return fmt.Errorf("save cost for user %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// benefitFilter returns the WHERE fragment selecting workspaces that still
// hold the benefit under the configured policy.
func (s *SQLite) benefitFilter() (string, []any) {
	var (
		conds []string
		args  []any
	)
	conds = append(conds, "active = 1")
	switch s.policy.Mode {
	case ModeBillingStatus:
		conds = append(conds, "billing_status = 'ACTIVE'")
	default:
		conds = append(conds, "initial_credits_exhausted = 0")
	}
	if len(s.policy.BillingAccounts) > 0 {
		in, accountArgs := inClause(s.policy.BillingAccounts)
		conds = append(conds, "billing_account IN "+in)
		args = append(args, accountArgs...)
	}
	return strings.Join(conds, " AND "), args
}

func (s *SQLite) ActiveBenefitCreators(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	if len(ids) == 0 {
		return out, nil
	}

	filter, filterArgs := s.benefitFilter()
	in, idArgs := inClause(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT creator_id FROM workspaces WHERE creator_id IN `+in+` AND `+filter,
		append(idArgs, filterArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("query benefit creators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan creator row: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *SQLite) MarkExhausted(ctx context.Context, userID int64) ([]model.Workspace, error) {
	filter, args := s.benefitFilter()
	return s.updateBenefit(ctx, userID, filter, args, true)
}

func (s *SQLite) ReactivateBenefit(ctx context.Context, userID int64) ([]model.Workspace, error) {
	filter := "active = 1 AND (initial_credits_exhausted = 1 OR billing_status = 'INACTIVE')"
	var args []any
	if len(s.policy.BillingAccounts) > 0 {
		in, accountArgs := inClause(s.policy.BillingAccounts)
		filter += " AND billing_account IN " + in
		args = accountArgs
	}
	return s.updateBenefit(ctx, userID, filter, args, false)
}

// updateBenefit withdraws (exhaust) or restores the benefit on the user's
// workspaces matching filter inside one transaction, returning them as they
// are after the update.
func (s *SQLite) updateBenefit(ctx context.Context, userID int64, filter string, filterArgs []any, exhaust bool) ([]model.Workspace, error) {
	status := model.BillingActive
	if exhaust {
		status = model.BillingInactive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin benefit update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := append([]any{userID}, filterArgs...)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE creator_id = ? AND `+filter+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("select benefit workspaces: %w", err)
	}
	workspaces, err := scanWorkspaces(rows)
	if err != nil {
		return nil, err
	}
	if len(workspaces) == 0 {
		return nil, tx.Commit()
	}

	now := time.Now().UTC()
	ids := make([]int64, len(workspaces))
	for i, ws := range workspaces {
		ids[i] = ws.ID
	}
	in, idArgs := inClause(ids)
	if _, err := tx.ExecContext(ctx,
		`UPDATE workspaces SET initial_credits_exhausted = ?, billing_status = ?, updated_at = ? WHERE id IN `+in,
		append([]any{exhaust, status, now}, idArgs...)...,
	); err != nil {
		return nil, fmt.Errorf("update benefit workspaces: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit benefit update: %w", err)
	}

	for i := range workspaces {
		workspaces[i].InitialCreditsExhausted = exhaust
		workspaces[i].BillingStatus = status
		workspaces[i].UpdatedAt = now
	}
	return workspaces, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// inClause builds "(?, ?, ...)" with one placeholder per value.
func inClause[T any](values []T) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
