package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/sqlutil"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

const (
	tableUsers  = "users"
	tableRounds = "rounds"
	tableBets   = "bets"
	tableOutbox = "outbox"
)

var (
	userColumns   = []string{"id", "name", "balance", "created_at"}
	roundColumns  = []string{"id", "start_time", "end_time", "crash_multiplier", "created_at"}
	betColumns    = []string{"id", "user_id", "round_id", "amount", "cashed_out_at_multiplier", "result", "created_at"}
	outboxColumns = []string{"id", "event_type", "payload", "created_at", "sent_at"}
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries runs squirrel-built statements against a DB or a Tx
type Queries struct {
	db DBTX
	sb sq.StatementBuilderType
}

func newQueries(db DBTX, sb sq.StatementBuilderType) *Queries {
	return &Queries{db: db, sb: sb}
}

// WithTx returns a copy bound to tx
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, sb: q.sb}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (q *Queries) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.db.QueryRowContext(ctx, query, args...), nil
}

func (q *Queries) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.db.QueryContext(ctx, query, args...)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// Users

func (q *Queries) InsertUser(ctx context.Context, u models.User) error {
	_, err := q.exec(ctx, q.sb.Insert(tableUsers).
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Balance, sqlutil.ToMillis(u.CreatedAt)))
	return err
}

func (q *Queries) GetUser(ctx context.Context, id string) (*models.User, error) {
	return q.getUserWhere(ctx, sq.Eq{"id": id})
}

func (q *Queries) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return q.getUserWhere(ctx, sq.Eq{"name": name})
}

func (q *Queries) getUserWhere(ctx context.Context, pred sq.Eq) (*models.User, error) {
	row, err := q.queryRow(ctx, q.sb.Select(userColumns...).From(tableUsers).Where(pred))
	if err != nil {
		return nil, err
	}
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (q *Queries) SetBalance(ctx context.Context, id string, balance int64) error {
	n, err := q.exec(ctx, q.sb.Update(tableUsers).Set("balance", balance).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddBalance applies delta unless the result would be negative; it reports rows changed.
func (q *Queries) AddBalance(ctx context.Context, id string, delta int64) (int64, error) {
	b := q.sb.Update(tableUsers).
		Set("balance", sq.Expr("balance + ?", delta)).
		Where(sq.Eq{"id": id})
	if delta < 0 {
		b = b.Where(sq.GtOrEq{"balance": -delta})
	}
	n, err := q.exec(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}
	return n, nil
}

func (q *Queries) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	rows, err := q.query(ctx, q.sb.Select(userColumns...).
		From(tableUsers).
		OrderBy("balance DESC", "created_at ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u         models.User
		createdAt int64
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Balance, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = sqlutil.FromMillis(createdAt)
	return &u, nil
}

// Rounds

func (q *Queries) InsertRound(ctx context.Context, r models.Round) error {
	_, err := q.exec(ctx, q.sb.Insert(tableRounds).
		Columns("id", "start_time", "created_at").
		Values(r.ID, sqlutil.ToMillis(r.StartTime), sqlutil.ToMillis(r.CreatedAt)))
	return err
}

func (q *Queries) GetRound(ctx context.Context, id string) (*models.Round, error) {
	row, err := q.queryRow(ctx, q.sb.Select(roundColumns...).From(tableRounds).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var (
		r          models.Round
		start, cr  int64
		end        sql.NullInt64
		multiplier sql.NullFloat64
	)
	if err := row.Scan(&r.ID, &start, &end, &multiplier, &cr); err != nil {
		return nil, notFound(err)
	}
	r.StartTime = sqlutil.FromMillis(start)
	r.EndTime = sqlutil.FromNullMillis(end)
	r.CrashMultiplier = sqlutil.FromNullFloat64(multiplier)
	r.CreatedAt = sqlutil.FromMillis(cr)
	return &r, nil
}

// EndRound only touches a round whose end time is unset; it reports rows changed.
func (q *Queries) EndRound(ctx context.Context, id string, endTime time.Time, crash float64) (int64, error) {
	n, err := q.exec(ctx, q.sb.Update(tableRounds).
		Set("end_time", sqlutil.ToMillis(endTime)).
		Set("crash_multiplier", crash).
		Where(sq.Eq{"id": id, "end_time": nil}))
	if err != nil {
		return 0, fmt.Errorf("failed to end round: %w", err)
	}
	return n, nil
}

// Bets

func (q *Queries) InsertBet(ctx context.Context, b models.Bet) error {
	_, err := q.exec(ctx, q.sb.Insert(tableBets).
		Columns("id", "user_id", "round_id", "amount", "created_at").
		Values(b.ID, b.UserID, b.RoundID, b.Amount, sqlutil.ToMillis(b.CreatedAt)))
	return err
}

func (q *Queries) GetBet(ctx context.Context, id string) (*models.Bet, error) {
	row, err := q.queryRow(ctx, q.sb.Select(betColumns...).From(tableBets).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	bet, err := scanBet(row)
	if err != nil {
		return nil, notFound(err)
	}
	return bet, nil
}

func (q *Queries) ListUserBetsInRound(ctx context.Context, userID, roundID string) ([]models.Bet, error) {
	rows, err := q.query(ctx, q.sb.Select(betColumns...).
		From(tableBets).
		Where(sq.Eq{"user_id": userID, "round_id": roundID}).
		OrderBy("created_at ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return collectBets(rows)
}

// MarkBetWon only touches a pending bet; it reports rows changed.
func (q *Queries) MarkBetWon(ctx context.Context, id string, atMultiplier float64) (int64, error) {
	n, err := q.exec(ctx, q.sb.Update(tableBets).
		Set("cashed_out_at_multiplier", atMultiplier).
		Set("result", string(models.BetResultWin)).
		Where(sq.Eq{"id": id, "result": nil}))
	if err != nil {
		return 0, fmt.Errorf("failed to settle bet: %w", err)
	}
	return n, nil
}

func (q *Queries) LoseOpenBets(ctx context.Context, roundID string) ([]models.Bet, error) {
	rows, err := q.query(ctx, q.sb.Update(tableBets).
		Set("result", string(models.BetResultLose)).
		Where(sq.Eq{"round_id": roundID, "result": nil}).
		Suffix("RETURNING id, user_id, round_id, amount, cashed_out_at_multiplier, result, created_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve open bets: %w", err)
	}
	return collectBets(rows)
}

func collectBets(rows *sql.Rows) ([]models.Bet, error) {
	defer rows.Close()

	var bets []models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

func scanBet(s scanner) (*models.Bet, error) {
	var (
		b         models.Bet
		cashedOut sql.NullFloat64
		result    sql.NullString
		createdAt int64
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.RoundID, &b.Amount, &cashedOut, &result, &createdAt); err != nil {
		return nil, err
	}
	b.CashedOutAt = sqlutil.FromNullFloat64(cashedOut)
	b.Result = models.BetResult(sqlutil.FromSqlString(result, string(models.BetResultPending)))
	b.CreatedAt = sqlutil.FromMillis(createdAt)
	return &b, nil
}

// Outbox

func (q *Queries) InsertOutbox(ctx context.Context, e storage.OutboxEvent) error {
	payload := pqtype.NullRawMessage{RawMessage: e.Payload, Valid: len(e.Payload) > 0}
	_, err := q.exec(ctx, q.sb.Insert(tableOutbox).
		Columns("id", "event_type", "payload", "created_at").
		Values(e.ID, e.EventType, payload, sqlutil.ToMillis(e.CreatedAt)))
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int) ([]storage.OutboxEvent, error) {
	rows, err := q.query(ctx, q.sb.Select(outboxColumns...).
		From(tableOutbox).
		Where(sq.Eq{"sent_at": nil}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []storage.OutboxEvent
	for rows.Next() {
		var (
			e         storage.OutboxEvent
			payload   pqtype.NullRawMessage
			createdAt int64
			sentAt    sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.EventType, &payload, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.RawMessage
		}
		e.CreatedAt = sqlutil.FromMillis(createdAt)
		e.SentAt = sqlutil.FromNullMillis(sentAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *Queries) MarkOutboxSent(ctx context.Context, ids []string, sentAt time.Time) error {
	_, err := q.exec(ctx, q.sb.Update(tableOutbox).
		Set("sent_at", sqlutil.ToMillis(sentAt)).
		Where(sq.Eq{"id": ids}))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}
