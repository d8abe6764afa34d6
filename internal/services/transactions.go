package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// Error variables
var (
	ErrAmountNotPositive   = errors.New("amount must be positive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionFinal    = errors.New("transaction status is final")
	ErrInvalidStatus       = errors.New("invalid transaction status")
)

// TransactionWriter defines transaction write operations.
type TransactionWriter interface {
	Save(ctx context.Context, txn models.TransactionDB) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, txnID uuid.UUID, status, reason string) error
	AddNote(ctx context.Context, note models.AnalystNoteDB) error
}

// TransactionReader defines transaction read operations.
type TransactionReader interface {
	GetByID(ctx context.Context, txnID uuid.UUID) (*models.TransactionDB, error)
	List(ctx context.Context, userID *uuid.UUID, status *string) ([]models.TransactionDB, error)
	Notes(ctx context.Context, txnID uuid.UUID) ([]models.AnalystNoteDB, error)
}

// UserGetter looks up users by id.
type UserGetter interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
}

// Evaluator produces a fraud decision for a candidate transaction.
type Evaluator interface {
	Evaluate(ctx context.Context, amount float64, merchant string) (Decision, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransactionService owns the transaction lifecycle: creation with the
// authoritative server-side fraud decision, review transitions, and
// analyst notes. Flagged transactions and threshold alerts are published
// to the fraud-alerts topic.
type TransactionService struct {
	engine      Evaluator
	writer      TransactionWriter
	reader      TransactionReader
	users       UserGetter
	audit       AuditWriter
	kafkaWriter KafkaWriter
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(
	engine Evaluator,
	writer TransactionWriter,
	reader TransactionReader,
	users UserGetter,
	audit AuditWriter,
	kafkaWriter KafkaWriter,
) *TransactionService {
	return &TransactionService{
		engine:      engine,
		writer:      writer,
		reader:      reader,
		users:       users,
		audit:       audit,
		kafkaWriter: kafkaWriter,
	}
}

// publishAlert publishes a fraud alert to Kafka. Publishing is best
// effort: a broker failure never fails the transaction itself.
func (s *TransactionService) publishAlert(ctx context.Context, alert models.FraudAlert) {
	if s.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping alert", "transaction_id", alert.TransactionID)
		return
	}

	data, err := json.Marshal(alert)
	if err != nil {
		logger.Log.Errorw("Failed to marshal fraud alert", "transaction_id", alert.TransactionID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(alert.TransactionID),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish fraud alert", "transaction_id", alert.TransactionID, "error", err)
	} else {
		logger.Log.Infow("Fraud alert published", "transaction_id", alert.TransactionID, "kind", alert.Kind)
	}
}

// Create submits a transaction for a user. The rule engine decides the
// status server-side; the returned bool reports whether the user's
// personal alert threshold was exceeded (a side signal, independent of
// the fraud outcome).
func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, amount float64, merchant, location string) (*models.TransactionDB, bool, error) {
	if amount <= 0 {
		return nil, false, ErrAmountNotPositive
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to load transaction owner", "userID", userID, "error", err)
		return nil, false, err
	}
	if user == nil {
		return nil, false, ErrUserDoesNotExist
	}

	decision, err := s.engine.Evaluate(ctx, amount, merchant)
	if err != nil {
		return nil, false, err
	}

	txn := models.TransactionDB{
		TransactionID: uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Merchant:      merchant,
		Location:      location,
		Status:        decision.Status,
		Reason:        decision.Reason,
		CreatedAt:     time.Now(),
	}

	txnID, err := s.writer.Save(ctx, txn)
	if err != nil {
		logger.Log.Errorw("failed to save transaction", "userID", userID, "error", err)
		return nil, false, err
	}
	txn.TransactionID = txnID

	if err := s.audit.Save(ctx, user.Username, models.AuditActionTransaction,
		fmt.Sprintf("transaction %s at %s for %.2f: %s", txnID, merchant, amount, decision.Status)); err != nil {
		logger.Log.Errorw("failed to audit transaction", "transaction_id", txnID, "error", err)
	}

	if decision.Status != models.StatusApproved {
		s.publishAlert(ctx, models.FraudAlert{
			AlertID:       uuid.NewString(),
			Kind:          models.AlertKindFlagged,
			TransactionID: txnID.String(),
			UserID:        userID.String(),
			Amount:        amount,
			Merchant:      merchant,
			Status:        decision.Status,
			Reason:        decision.Reason,
			Timestamp:     time.Now().Unix(),
		})
	}

	alertTriggered := ExceedsAlertThreshold(user, amount)
	if alertTriggered {
		s.publishAlert(ctx, models.FraudAlert{
			AlertID:       uuid.NewString(),
			Kind:          models.AlertKindThreshold,
			TransactionID: txnID.String(),
			UserID:        userID.String(),
			Amount:        amount,
			Merchant:      merchant,
			Status:        decision.Status,
			Reason:        fmt.Sprintf("amount %.2f exceeds alert threshold", amount),
			Timestamp:     time.Now().Unix(),
		})
	}

	return &txn, alertTriggered, nil
}

// Review transitions an in_review transaction to a terminal status and
// records the analyst's note. Terminal statuses never transition:
// attempting to review an approved or fraudulent transaction returns
// ErrTransactionFinal.
func (s *TransactionService) Review(ctx context.Context, reviewer string, txnID uuid.UUID, newStatus, note string) (*models.TransactionDB, error) {
	if newStatus != models.StatusApproved && newStatus != models.StatusFraudulent {
		return nil, ErrInvalidStatus
	}

	txn, err := s.reader.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ErrTransactionNotFound
	}
	if models.TerminalStatus(txn.Status) {
		return nil, ErrTransactionFinal
	}

	reason := fmt.Sprintf("Reviewed by %s", reviewer)
	if err := s.writer.UpdateStatus(ctx, txnID, newStatus, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race with another reviewer.
			return nil, ErrTransactionFinal
		}
		return nil, err
	}

	if note != "" {
		if err := s.writer.AddNote(ctx, models.AnalystNoteDB{
			TransactionID: txnID,
			Analyst:       reviewer,
			Note:          note,
		}); err != nil {
			logger.Log.Errorw("failed to add analyst note", "transaction_id", txnID, "error", err)
			return nil, err
		}
	}

	if err := s.audit.Save(ctx, reviewer, models.AuditActionReview,
		fmt.Sprintf("transaction %s marked %s", txnID, newStatus)); err != nil {
		logger.Log.Errorw("failed to audit review", "transaction_id", txnID, "error", err)
	}

	txn.Status = newStatus
	txn.Reason = reason
	return txn, nil
}

// AddNote appends an analyst note without changing the status. Allowed on
// any status since notes never change the decision.
func (s *TransactionService) AddNote(ctx context.Context, analyst string, txnID uuid.UUID, note string) error {
	txn, err := s.reader.GetByID(ctx, txnID)
	if err != nil {
		return err
	}
	if txn == nil {
		return ErrTransactionNotFound
	}

	return s.writer.AddNote(ctx, models.AnalystNoteDB{
		TransactionID: txnID,
		Analyst:       analyst,
		Note:          note,
	})
}

// List returns transactions filtered by owner and/or status.
func (s *TransactionService) List(ctx context.Context, userID *uuid.UUID, status *string) ([]models.TransactionDB, error) {
	return s.reader.List(ctx, userID, status)
}

// Get returns one transaction with its analyst notes.
func (s *TransactionService) Get(ctx context.Context, txnID uuid.UUID) (*models.TransactionDB, []models.AnalystNoteDB, error) {
	txn, err := s.reader.GetByID(ctx, txnID)
	if err != nil {
		return nil, nil, err
	}
	if txn == nil {
		return nil, nil, ErrTransactionNotFound
	}

	notes, err := s.reader.Notes(ctx, txnID)
	if err != nil {
		return nil, nil, err
	}
	return txn, notes, nil
}
