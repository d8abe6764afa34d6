package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// Error variables
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCardFrozen        = errors.New("card is frozen")
	ErrUnknownRecipient  = errors.New("unknown recipient")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
)

// BalanceMover moves funds between user balances. Both calls are expected
// to run inside the request transaction (tx middleware) so a failed
// credit rolls back the debit.
type BalanceMover interface {
	Debit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error)
	Credit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error)
}

// TransferUserReader resolves transfer participants.
type TransferUserReader interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
	GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error)
}

// TransferService moves funds between two application users with local
// validation. Validation failures report inline and mutate nothing.
type TransferService struct {
	reader TransferUserReader
	mover  BalanceMover
	audit  AuditWriter
}

// NewTransferService creates a TransferService.
func NewTransferService(reader TransferUserReader, mover BalanceMover, audit AuditWriter) *TransferService {
	return &TransferService{reader: reader, mover: mover, audit: audit}
}

// Transfer debits amount from the sender and credits the recipient
// (resolved by username). Returns the sender's new balance.
//
// Validation order: positive amount, sender exists, card not frozen,
// recipient exists and differs from sender, sufficient funds. No write
// happens before every check passes.
func (s *TransferService) Transfer(ctx context.Context, senderID uuid.UUID, recipientUsername string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrAmountNotPositive
	}

	sender, err := s.reader.GetByID(ctx, senderID)
	if err != nil {
		logger.Log.Errorw("failed to load sender", "userID", senderID, "error", err)
		return 0, err
	}
	if sender == nil {
		return 0, ErrUserDoesNotExist
	}
	if sender.CardFrozen {
		return 0, ErrCardFrozen
	}

	recipient, err := s.reader.GetByUsernameOrEmail(ctx, &recipientUsername, nil)
	if err != nil {
		logger.Log.Errorw("failed to load recipient", "username", recipientUsername, "error", err)
		return 0, err
	}
	if recipient == nil {
		return 0, ErrUnknownRecipient
	}
	if recipient.UserID == sender.UserID {
		return 0, ErrSelfTransfer
	}

	newBalance, err := s.mover.Debit(ctx, sender.UserID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		logger.Log.Errorw("debit failed", "userID", sender.UserID, "amount", amount, "error", err)
		return 0, err
	}

	if _, err := s.mover.Credit(ctx, recipient.UserID, amount); err != nil {
		logger.Log.Errorw("credit failed", "userID", recipient.UserID, "amount", amount, "error", err)
		return 0, err
	}

	if err := s.audit.Save(ctx, sender.Username, models.AuditActionTransfer,
		fmt.Sprintf("transferred %.2f to %s", amount, recipient.Username)); err != nil {
		logger.Log.Errorw("failed to audit transfer", "sender", sender.Username, "error", err)
	}

	logger.Log.Infow("transfer completed",
		"sender", sender.Username, "recipient", recipient.Username, "amount", amount)

	return newBalance, nil
}

// Balance returns a user's current balance.
func (s *TransferService) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	user, err := s.reader.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserDoesNotExist
	}
	return user.Balance, nil
}
