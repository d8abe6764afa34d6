package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// TransactionWriteRepository handles transaction write operations
type TransactionWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTransactionWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db, txGetter: txGetter}
}

func (r *TransactionWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save inserts a new transaction and returns its generated id.
func (r *TransactionWriteRepository) Save(ctx context.Context, txn models.TransactionDB) (uuid.UUID, error) {
	query := `
		INSERT INTO transactions (transaction_id, user_id, amount, merchant, location, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING transaction_id
	`

	txnID := txn.TransactionID
	if txnID == uuid.Nil {
		txnID = uuid.New()
	}
	args := []any{txnID, txn.UserID, txn.Amount, txn.Merchant, txn.Location, txn.Status, txn.Reason}

	var saved uuid.UUID
	err := sqlx.GetContext(ctx, r.executor(ctx), &saved, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)

	return saved, err
}

// UpdateStatus moves a transaction out of in_review. The WHERE clause
// enforces terminal statuses in the database: an approved or fraudulent
// transaction matches no row and sql.ErrNoRows is returned.
func (r *TransactionWriteRepository) UpdateStatus(ctx context.Context, txnID uuid.UUID, status, reason string) error {
	query := `
		UPDATE transactions
		SET status = $2, reason = $3
		WHERE transaction_id = $1 AND status = 'in_review'
	`
	args := []any{txnID, status, reason}

	res, err := r.executor(ctx).ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddNote appends an analyst note to a transaction.
func (r *TransactionWriteRepository) AddNote(ctx context.Context, note models.AnalystNoteDB) error {
	query := `
		INSERT INTO analyst_notes (note_id, transaction_id, analyst, note, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	noteID := note.NoteID
	if noteID == uuid.Nil {
		noteID = uuid.New()
	}
	args := []any{noteID, note.TransactionID, note.Analyst, note.Note}

	_, err := r.executor(ctx).ExecContext(ctx, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)

	return err
}

// TransactionReadRepository handles transaction read operations
type TransactionReadRepository struct {
	db *sqlx.DB
}

func NewTransactionReadRepository(db *sqlx.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// GetByID returns a transaction by id. Returns (nil, nil) when absent.
func (r *TransactionReadRepository) GetByID(ctx context.Context, txnID uuid.UUID) (*models.TransactionDB, error) {
	query := `
		SELECT transaction_id, user_id, amount, merchant, location, status, reason, created_at
		FROM transactions
		WHERE transaction_id = $1
	`

	var txn models.TransactionDB
	err := r.db.GetContext(ctx, &txn, query, txnID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txnID},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &txn, nil
}

// List returns transactions, optionally filtered by owner and/or status,
// newest first.
func (r *TransactionReadRepository) List(ctx context.Context, userID *uuid.UUID, status *string) ([]models.TransactionDB, error) {
	query := `
		SELECT transaction_id, user_id, amount, merchant, location, status, reason, created_at
		FROM transactions
		WHERE ($1::UUID IS NULL OR user_id = $1)
		  AND ($2::VARCHAR IS NULL OR status = $2)
		ORDER BY created_at DESC
	`

	var txns []models.TransactionDB
	err := r.db.SelectContext(ctx, &txns, query, userID, status)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{userID, status},
		"result_count", len(txns),
		"error", err,
	)

	return txns, err
}

// Notes returns all analyst notes for a transaction, oldest first.
func (r *TransactionReadRepository) Notes(ctx context.Context, txnID uuid.UUID) ([]models.AnalystNoteDB, error) {
	query := `
		SELECT note_id, transaction_id, analyst, note, created_at
		FROM analyst_notes
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`

	var notes []models.AnalystNoteDB
	err := r.db.SelectContext(ctx, &notes, query, txnID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txnID},
		"result_count", len(notes),
		"error", err,
	)

	return notes, err
}
