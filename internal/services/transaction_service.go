package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"
	"stampcard/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionService interface {
	// History
	ListCustomerTransactions(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)
	ListBusinessTransactions(ctx context.Context, businessID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)

	// Reviews
	ListPendingReviews(ctx context.Context, customerID primitive.ObjectID) ([]*models.Transaction, error)
	SubmitReview(ctx context.Context, customerID, transactionID primitive.ObjectID, rating int, comment string) (*models.Review, error)
}

type transactionService struct {
	transactionRepo interfaces.TransactionRepository
	reviewRepo      interfaces.ReviewRepository
	logger          *logger.Logger
}

func NewTransactionService(transactionRepo interfaces.TransactionRepository, reviewRepo interfaces.ReviewRepository, log *logger.Logger) TransactionService {
	return &transactionService{
		transactionRepo: transactionRepo,
		reviewRepo:      reviewRepo,
		logger:          log,
	}
}

func (s *transactionService) ListCustomerTransactions(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	transactions, total, err := s.transactionRepo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *transactionService) ListBusinessTransactions(ctx context.Context, businessID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	transactions, total, err := s.transactionRepo.ListByBusiness(ctx, businessID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *transactionService) ListPendingReviews(ctx context.Context, customerID primitive.ObjectID) ([]*models.Transaction, error) {
	transactions, err := s.transactionRepo.ListUnreviewed(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reviews: %w", err)
	}
	return transactions, nil
}

func (s *transactionService) SubmitReview(ctx context.Context, customerID, transactionID primitive.ObjectID, rating int, comment string) (*models.Review, error) {
	if rating < utils.MinReviewRating || rating > utils.MaxReviewRating {
		return nil, ErrInvalidRating
	}

	transaction, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}
	if transaction.CustomerID != customerID {
		return nil, ErrTransactionNotFound
	}
	if transaction.ReviewID != nil {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		CustomerID:    customerID,
		BusinessID:    transaction.BusinessID,
		TransactionID: transactionID,
		Rating:        rating,
		Comment:       strings.TrimSpace(comment),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	if err := s.transactionRepo.AttachReview(ctx, transactionID, review.ID); err != nil {
		if errors.Is(err, interfaces.ErrAlreadyLinked) {
			return nil, ErrAlreadyReviewed
		}
		// An orphaned review would hold the unique index and block a retry.
		if delErr := s.reviewRepo.Delete(ctx, review.ID); delErr != nil {
			s.logger.WithContext(ctx).WithError(delErr).WithField("review_id", review.ID.Hex()).Error("Reconciliation required: review stored but not attached to transaction")
		}
		return nil, fmt.Errorf("failed to attach review: %w", err)
	}

	s.logger.WithContext(ctx).WithCustomerID(customerID).WithBusinessID(transaction.BusinessID).WithFields(logger.Fields{
		"transaction_id": transactionID.Hex(),
		"rating":         rating,
	}).Info("Review submitted")
	return review, nil
}
