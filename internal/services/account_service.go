package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountService manages a customer's relationship with businesses: wallets,
// gift catalogues, device registration and disconnecting a customer from a
// business.
type AccountService interface {
	ListWallets(ctx context.Context, customerID primitive.ObjectID) ([]*models.Wallet, error)
	GetWallet(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.Wallet, error)
	ListGifts(ctx context.Context, businessID primitive.ObjectID) ([]*models.Gift, error)
	RegisterDeviceToken(ctx context.Context, customerID primitive.ObjectID, fcmToken, apnsToken string) error
	DisconnectCustomer(ctx context.Context, businessID, customerID primitive.ObjectID) error
}

type accountService struct {
	walletRepo   interfaces.WalletRepository
	giftRepo     interfaces.GiftRepository
	customerRepo interfaces.CustomerRepository
	tokenRepo    interfaces.QRTokenRepository
	notifier     Notifier
	logger       *logger.Logger
	now          func() time.Time
}

func NewAccountService(
	walletRepo interfaces.WalletRepository,
	giftRepo interfaces.GiftRepository,
	customerRepo interfaces.CustomerRepository,
	tokenRepo interfaces.QRTokenRepository,
	notifier Notifier,
	log *logger.Logger,
) AccountService {
	return &accountService{
		walletRepo:   walletRepo,
		giftRepo:     giftRepo,
		customerRepo: customerRepo,
		tokenRepo:    tokenRepo,
		notifier:     notifier,
		logger:       log,
		now:          time.Now,
	}
}

func (s *accountService) ListWallets(ctx context.Context, customerID primitive.ObjectID) ([]*models.Wallet, error) {
	wallets, err := s.walletRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (s *accountService) GetWallet(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.Wallet, error) {
	wallet, err := s.walletRepo.Get(ctx, customerID, businessID)
	if err != nil {
		return nil, notFound(err, ErrWalletNotFound)
	}
	return wallet, nil
}

func (s *accountService) ListGifts(ctx context.Context, businessID primitive.ObjectID) ([]*models.Gift, error) {
	gifts, err := s.giftRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	return gifts, nil
}

func (s *accountService) RegisterDeviceToken(ctx context.Context, customerID primitive.ObjectID, fcmToken, apnsToken string) error {
	if err := s.customerRepo.UpdateDeviceTokens(ctx, customerID, fcmToken, apnsToken); err != nil {
		return notFound(err, ErrCustomerNotFound)
	}
	s.logger.WithContext(ctx).WithCustomerID(customerID).Debug("Device token registered")
	return nil
}

// DisconnectCustomer removes a customer from a business. Open tokens the
// customer holds there are cancelled first so no later confirm credits the
// wallet being removed. A token already claimed by a running confirm is left
// to finish.
func (s *accountService) DisconnectCustomer(ctx context.Context, businessID, customerID primitive.ObjectID) error {
	log := s.logger.WithContext(ctx).WithBusinessID(businessID).WithCustomerID(customerID)

	cancelled, err := s.tokenRepo.CancelForCustomer(ctx, customerID, businessID, s.now())
	if err != nil {
		return fmt.Errorf("failed to cancel customer tokens: %w", err)
	}

	err = s.walletRepo.Delete(ctx, customerID, businessID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		if cancelled == 0 {
			return ErrWalletNotFound
		}
	case err != nil:
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	log.WithField("cancelled_tokens", cancelled).Info("Customer disconnected from business")
	s.notifier.NotifyCustomer(customerID, models.EventUserDisconnected, map[string]interface{}{
		"business_id":      businessID.Hex(),
		"cancelled_tokens": cancelled,
	})
	return nil
}
