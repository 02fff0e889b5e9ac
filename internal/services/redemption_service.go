package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stampcard/internal/config"
	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"
	"stampcard/pkg/logger"
	"stampcard/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenCreateAttempts = 3

type RedemptionService interface {
	// Token issuance
	IssueCheckIn(ctx context.Context, businessID primitive.ObjectID) (*models.IssuedToken, error)
	PrepareGiftRedemption(ctx context.Context, customerID, businessID primitive.ObjectID, giftID *primitive.ObjectID, useEntitlement bool) (*models.IssuedToken, error)
	GetStaticToken(ctx context.Context, businessID primitive.ObjectID) (string, error)
	RotateStaticToken(ctx context.Context, businessID primitive.ObjectID) (string, error)

	// State transitions
	SubmitToken(ctx context.Context, customerID primitive.ObjectID, value string, expectedBusinessID *primitive.ObjectID) (*models.SubmitResult, error)
	ConfirmToken(ctx context.Context, businessID primitive.ObjectID, request *models.ConfirmRequest) (*models.ConfirmResult, error)
	CancelToken(ctx context.Context, businessID, tokenID primitive.ObjectID) error

	// Polling
	PollCustomerStatus(ctx context.Context, customerID primitive.ObjectID, value string) (*models.CustomerPoll, error)
	PollBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.BusinessPoll, error)
	GetBusinessTokenStatus(ctx context.Context, businessID primitive.ObjectID, value string) (*models.BusinessTokenStatus, error)
	VerifyGiftRedemption(ctx context.Context, businessID primitive.ObjectID, value string) (*models.GiftVerification, error)
}

// Notifier receives lifecycle events once a transition has been committed.
// Implementations must not block the caller.
type Notifier interface {
	NotifyCustomer(customerID primitive.ObjectID, eventType models.EventType, data map[string]interface{})
	NotifyBusiness(businessID primitive.ObjectID, eventType models.EventType, data map[string]interface{})
}

type redemptionService struct {
	tokenRepo       interfaces.QRTokenRepository
	walletRepo      interfaces.WalletRepository
	transactionRepo interfaces.TransactionRepository
	businessRepo    interfaces.BusinessRepository
	customerRepo    interfaces.CustomerRepository
	giftRepo        interfaces.GiftRepository
	notifier        Notifier
	config          *config.LoyaltyConfig
	metrics         *metrics.LoyaltyMetrics
	logger          *logger.Logger
	now             func() time.Time
}

func NewRedemptionService(
	tokenRepo interfaces.QRTokenRepository,
	walletRepo interfaces.WalletRepository,
	transactionRepo interfaces.TransactionRepository,
	businessRepo interfaces.BusinessRepository,
	customerRepo interfaces.CustomerRepository,
	giftRepo interfaces.GiftRepository,
	notifier Notifier,
	cfg *config.LoyaltyConfig,
	log *logger.Logger,
) RedemptionService {
	return &redemptionService{
		tokenRepo:       tokenRepo,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		businessRepo:    businessRepo,
		customerRepo:    customerRepo,
		giftRepo:        giftRepo,
		notifier:        notifier,
		config:          cfg,
		metrics:         metrics.Loyalty(),
		logger:          log,
		now:             time.Now,
	}
}

func (s *redemptionService) IssueCheckIn(ctx context.Context, businessID primitive.ObjectID) (*models.IssuedToken, error) {
	if _, err := s.getBusiness(ctx, businessID); err != nil {
		return nil, err
	}

	token, err := s.createToken(ctx, businessID, models.CheckInPayload{}, nil)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).LogTokenEvent(token.ID, "issued", logger.Fields{"kind": token.Kind})
	return models.NewIssuedToken(token, s.now()), nil
}

func (s *redemptionService) PrepareGiftRedemption(ctx context.Context, customerID, businessID primitive.ObjectID, giftID *primitive.ObjectID, useEntitlement bool) (*models.IssuedToken, error) {
	if _, err := s.getBusiness(ctx, businessID); err != nil {
		return nil, err
	}

	payload := models.GiftPayload{UseEntitlement: useEntitlement, Title: "Free gift"}
	if !useEntitlement {
		if giftID == nil {
			return nil, ErrGiftNotFound
		}
		gift, err := s.giftRepo.GetByID(ctx, *giftID)
		if err != nil {
			return nil, notFound(err, ErrGiftNotFound)
		}
		if gift.BusinessID != businessID || !gift.IsActive {
			return nil, ErrGiftNotFound
		}
		payload.GiftID = gift.ID
		payload.Title = gift.Title
		payload.PointCost = gift.PointCost
	}

	// The balance is checked again atomically at confirm time.
	wallet, err := s.walletRepo.Get(ctx, customerID, businessID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if !wallet.CanSpend(spendCost(payload)) {
		return nil, ErrInsufficientBalance
	}

	token, err := s.createToken(ctx, businessID, payload, &customerID)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithCustomerID(customerID).LogTokenEvent(token.ID, "issued", logger.Fields{
		"kind":            token.Kind,
		"point_cost":      payload.PointCost,
		"use_entitlement": payload.UseEntitlement,
	})
	return models.NewIssuedToken(token, s.now()), nil
}

func (s *redemptionService) GetStaticToken(ctx context.Context, businessID primitive.ObjectID) (string, error) {
	business, err := s.getBusiness(ctx, businessID)
	if err != nil {
		return "", err
	}
	if business.StaticQR != "" {
		return business.StaticQR, nil
	}

	value, err := utils.GenerateTokenValue(utils.StaticTokenBytes)
	if err != nil {
		return "", err
	}
	set, err := s.businessRepo.SetStaticQR(ctx, businessID, value, true)
	if err != nil {
		return "", s.staticQRError(err)
	}
	if set {
		return value, nil
	}

	// Lost the race to another caller; theirs is the one stored.
	business, err = s.getBusiness(ctx, businessID)
	if err != nil {
		return "", err
	}
	return business.StaticQR, nil
}

func (s *redemptionService) RotateStaticToken(ctx context.Context, businessID primitive.ObjectID) (string, error) {
	if _, err := s.getBusiness(ctx, businessID); err != nil {
		return "", err
	}

	value, err := utils.GenerateTokenValue(utils.StaticTokenBytes)
	if err != nil {
		return "", err
	}
	if _, err := s.businessRepo.SetStaticQR(ctx, businessID, value, false); err != nil {
		return "", s.staticQRError(err)
	}

	s.logger.WithContext(ctx).WithBusinessID(businessID).Info("Static QR code rotated")
	return value, nil
}

func (s *redemptionService) SubmitToken(ctx context.Context, customerID primitive.ObjectID, value string, expectedBusinessID *primitive.ObjectID) (*models.SubmitResult, error) {
	now := s.now()

	token, err := s.tokenRepo.GetByValue(ctx, value)
	switch {
	case err == nil:
		if err := checkFirm(expectedBusinessID, token.BusinessID); err != nil {
			return nil, err
		}
		if token.RequestedBy != nil && *token.RequestedBy != customerID {
			return nil, ErrInvalidOrExpired
		}
	case errors.Is(err, interfaces.ErrNotFound):
		token, err = s.resolveStaticToken(ctx, customerID, value, expectedBusinessID, now)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load qr token: %w", err)
	}

	if status := token.EffectiveStatus(now); status != models.TokenStatusActive {
		return nil, statusError(token, status, models.TokenStatusScanned)
	}

	scanned, err := s.tokenRepo.CompareAndSetStatus(ctx, token.ID, interfaces.TokenTransition{
		From:      []models.TokenStatus{models.TokenStatusActive},
		To:        models.TokenStatusScanned,
		ScannedBy: &customerID,
		Unexpired: true,
		Now:       now,
	})
	if err != nil {
		return nil, s.transitionError(err, "submit")
	}
	s.metrics.ObserveTransition(string(scanned.Kind), string(scanned.Status))

	business, err := s.getBusiness(ctx, scanned.BusinessID)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithCustomerID(customerID).LogTokenEvent(scanned.ID, "scanned", logger.Fields{"kind": scanned.Kind})
	s.notifier.NotifyBusiness(scanned.BusinessID, models.EventTokenScanned, map[string]interface{}{
		"qr_token_id": scanned.ID.Hex(),
		"customer_id": customerID.Hex(),
		"kind":        scanned.Kind,
	})

	return &models.SubmitResult{
		Token:    models.NewIssuedToken(scanned, now),
		Status:   scanned.Status,
		Business: business.Summary(),
	}, nil
}

// resolveStaticToken maps a business's permanent code to the token the scan
// should act on: the customer's pending gift redemption at that business if
// there is one, otherwise a fresh check-in token.
func (s *redemptionService) resolveStaticToken(ctx context.Context, customerID primitive.ObjectID, value string, expectedBusinessID *primitive.ObjectID, now time.Time) (*models.QRToken, error) {
	business, err := s.businessRepo.GetByStaticQR(ctx, value)
	if err != nil {
		return nil, notFound(err, ErrInvalidOrExpired)
	}
	if err := checkFirm(expectedBusinessID, business.ID); err != nil {
		return nil, err
	}

	gift, err := s.tokenRepo.FindActiveGiftForCustomer(ctx, customerID, business.ID, now)
	if err == nil {
		return gift, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up pending gift: %w", err)
	}

	return s.createToken(ctx, business.ID, models.CheckInPayload{}, nil)
}

func (s *redemptionService) ConfirmToken(ctx context.Context, businessID primitive.ObjectID, request *models.ConfirmRequest) (*models.ConfirmResult, error) {
	now := s.now()
	log := s.logger.WithContext(ctx).WithBusinessID(businessID).WithTokenID(request.TokenID)

	token, err := s.tokenRepo.GetByID(ctx, request.TokenID)
	if err != nil {
		return nil, notFound(err, ErrTokenNotFound)
	}
	if token.BusinessID != businessID {
		return nil, ErrForbidden
	}

	previous := token.EffectiveStatus(now)
	if previous != models.TokenStatusActive && previous != models.TokenStatusScanned {
		return nil, statusError(token, previous, models.TokenStatusUsed)
	}

	customerID, ok := token.Customer()
	if !ok {
		// A check-in code nobody has scanned yet has no one to reward.
		return nil, ErrInvalidOrExpired
	}

	business, err := s.getBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	reward := s.planReward(token, business, request)
	if reward.spend() {
		wallet, err := s.walletRepo.Get(ctx, customerID, businessID)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("failed to load wallet: %w", err)
		}
		if wallet == nil || !wallet.CanSpend(reward.pointsCost, reward.giftsCost) {
			return nil, ErrInsufficientBalance
		}
	}

	// The claim keeps other confirms and cancels off the token while the
	// wallet changes. It becomes used only after the wallet update.
	if _, err := s.tokenRepo.CompareAndSetStatus(ctx, token.ID, interfaces.TokenTransition{
		From:      []models.TokenStatus{previous},
		To:        models.TokenStatusConfirming,
		Unexpired: true,
		Now:       now,
	}); err != nil {
		return nil, s.transitionError(err, "confirm")
	}

	var wallet *models.Wallet
	if reward.spend() {
		wallet, err = s.walletRepo.ApplySpend(ctx, customerID, businessID, reward.pointsCost, reward.giftsCost)
	} else {
		wallet, err = s.walletRepo.ApplyEarn(ctx, customerID, businessID, reward.stamps, reward.points, business.StampsTarget(int64(s.config.DefaultStampsTarget)))
	}
	if err != nil {
		s.releaseClaim(ctx, log, token.ID, previous)
		if errors.Is(err, interfaces.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	used, err := s.tokenRepo.CompareAndSetStatus(ctx, token.ID, interfaces.TokenTransition{
		From: []models.TokenStatus{models.TokenStatusConfirming},
		To:   models.TokenStatusUsed,
		Now:  s.now(),
	})
	if err != nil {
		log.WithError(err).WithCustomerID(customerID).Error("Reconciliation required: wallet updated but qr token not marked used")
		s.metrics.ObserveReconciliation("token_finalize")
	} else {
		s.metrics.ObserveTransition(string(used.Kind), string(used.Status))
	}

	transaction := reward.transaction(customerID, businessID, token.ID, now)
	result := &models.ConfirmResult{
		TokenID:     token.ID,
		Type:        transaction.Type,
		PointsDelta: transaction.PointsDelta,
		StampsDelta: transaction.StampsDelta,
		GiftsDelta:  transaction.GiftsDelta,
		Wallet:      wallet,
	}

	if err := s.transactionRepo.Append(ctx, transaction); err != nil {
		log.WithError(err).WithCustomerID(customerID).Error("Reconciliation required: wallet updated but transaction not recorded")
		s.metrics.ObserveReconciliation("transaction_append")
	} else {
		result.TransactionID = &transaction.ID
		if err := s.tokenRepo.LinkTransaction(ctx, token.ID, transaction.ID); err != nil {
			log.WithError(err).WithField("transaction_id", transaction.ID.Hex()).Error("Reconciliation required: transaction not linked to qr token")
			s.metrics.ObserveReconciliation("token_link")
		}
	}

	s.metrics.ObserveReward(string(transaction.Type))
	log.LogRewardEvent(customerID, businessID, string(transaction.Type), logger.Fields{
		"points_delta": transaction.PointsDelta,
		"stamps_delta": transaction.StampsDelta,
		"gifts_delta":  transaction.GiftsDelta,
		"qr_token_id":  token.ID.Hex(),
	})

	data := map[string]interface{}{
		"qr_token_id":  token.ID.Hex(),
		"business_id":  businessID.Hex(),
		"company_name": business.CompanyName,
		"type":         transaction.Type,
		"points_delta": transaction.PointsDelta,
		"stamps_delta": transaction.StampsDelta,
		"gifts_delta":  transaction.GiftsDelta,
		"points":       wallet.Points,
		"stamps":       wallet.Stamps,
		"gifts_count":  wallet.GiftsCount,
	}
	if result.TransactionID != nil {
		data["transaction_id"] = result.TransactionID.Hex()
	}
	s.notifier.NotifyCustomer(customerID, models.EventTokenCompleted, data)

	return result, nil
}

// releaseClaim hands the token back in the state it was claimed from after
// the wallet rejected the change, so the business can retry or cancel.
func (s *redemptionService) releaseClaim(ctx context.Context, log *logger.Logger, tokenID primitive.ObjectID, previous models.TokenStatus) {
	_, err := s.tokenRepo.CompareAndSetStatus(ctx, tokenID, interfaces.TokenTransition{
		From: []models.TokenStatus{models.TokenStatusConfirming},
		To:   previous,
		Now:  s.now(),
	})
	if err != nil {
		log.WithError(err).Error("Reconciliation required: qr token left confirming after wallet update failed")
		s.metrics.ObserveReconciliation("token_release")
	}
}

func (s *redemptionService) CancelToken(ctx context.Context, businessID, tokenID primitive.ObjectID) error {
	now := s.now()

	token, err := s.tokenRepo.GetByID(ctx, tokenID)
	if err != nil {
		return notFound(err, ErrTokenNotFound)
	}
	if token.BusinessID != businessID {
		return ErrForbidden
	}
	if status := token.EffectiveStatus(now); status.IsTerminal() || status == models.TokenStatusConfirming {
		return cancelOutcome(token, now)
	}

	cancelled, err := s.tokenRepo.CompareAndSetStatus(ctx, tokenID, interfaces.TokenTransition{
		From:      []models.TokenStatus{models.TokenStatusActive, models.TokenStatusScanned},
		To:        models.TokenStatusCancelled,
		Unexpired: true,
		Now:       now,
	})
	if errors.Is(err, interfaces.ErrTransitionConflict) {
		current, getErr := s.tokenRepo.GetByID(ctx, tokenID)
		if getErr != nil {
			return fmt.Errorf("failed to reload qr token: %w", getErr)
		}
		return cancelOutcome(current, now)
	}
	if err != nil {
		return fmt.Errorf("failed to cancel qr token: %w", err)
	}
	s.metrics.ObserveTransition(string(cancelled.Kind), string(cancelled.Status))
	s.logger.WithContext(ctx).WithBusinessID(businessID).LogTokenEvent(tokenID, "cancelled", nil)

	if customerID, ok := cancelled.Customer(); ok {
		s.notifier.NotifyCustomer(customerID, models.EventTokenCancelled, map[string]interface{}{
			"qr_token_id": tokenID.Hex(),
			"business_id": businessID.Hex(),
		})
	}
	return nil
}

func (s *redemptionService) PollCustomerStatus(ctx context.Context, customerID primitive.ObjectID, value string) (*models.CustomerPoll, error) {
	now := s.now()

	token, err := s.tokenRepo.GetByValue(ctx, value)
	if errors.Is(err, interfaces.ErrNotFound) {
		return &models.CustomerPoll{Status: models.CustomerStatusExpired}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load qr token: %w", err)
	}

	owner, ok := token.Customer()
	if !ok || owner != customerID {
		return &models.CustomerPoll{Status: models.CustomerStatusExpired}, nil
	}

	poll := &models.CustomerPoll{
		Status:    models.CoarseStatus(token.EffectiveStatus(now)),
		TokenID:   &token.ID,
		ExpiresIn: int64(token.ExpiresIn(now).Seconds()),
	}
	if poll.Status == models.CustomerStatusCompleted {
		poll.TransactionID = token.TransactionID
	}
	return poll, nil
}

func (s *redemptionService) PollBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.BusinessPoll, error) {
	now := s.now()

	token, err := s.tokenRepo.FindLatestScanned(ctx, businessID, now)
	if errors.Is(err, interfaces.ErrNotFound) {
		return &models.BusinessPoll{Status: models.BusinessPollWaiting}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to poll scanned tokens: %w", err)
	}

	poll := &models.BusinessPoll{
		Status: string(models.TokenStatusScanned),
		Token:  models.NewIssuedToken(token, now),
	}
	if customerID, ok := token.Customer(); ok {
		poll.Customer, poll.Wallet, err = s.customerContext(ctx, customerID, businessID)
		if err != nil {
			return nil, err
		}
	}
	return poll, nil
}

func (s *redemptionService) GetBusinessTokenStatus(ctx context.Context, businessID primitive.ObjectID, value string) (*models.BusinessTokenStatus, error) {
	now := s.now()

	token, err := s.tokenRepo.GetByValue(ctx, value)
	if err != nil {
		return nil, notFound(err, ErrTokenNotFound)
	}
	if token.BusinessID != businessID {
		return nil, ErrTokenNotFound
	}

	status := &models.BusinessTokenStatus{
		Token:         models.NewIssuedToken(token, now),
		Status:        token.EffectiveStatus(now),
		TransactionID: token.TransactionID,
	}
	if customerID, ok := token.Customer(); ok {
		status.Customer, status.Wallet, err = s.customerContext(ctx, customerID, businessID)
		if err != nil {
			return nil, err
		}
	}
	return status, nil
}

func (s *redemptionService) VerifyGiftRedemption(ctx context.Context, businessID primitive.ObjectID, value string) (*models.GiftVerification, error) {
	now := s.now()

	token, err := s.tokenRepo.GetByValue(ctx, value)
	if err != nil {
		return nil, notFound(err, ErrTokenNotFound)
	}
	gift, isGift := token.Payload().(models.GiftPayload)
	if !isGift || token.BusinessID != businessID {
		return nil, ErrTokenNotFound
	}

	status := token.EffectiveStatus(now)
	if status.IsTerminal() {
		return nil, statusError(token, status, models.TokenStatusUsed)
	}

	customerID, _ := token.Customer()
	customer, wallet, err := s.customerContext(ctx, customerID, businessID)
	if err != nil {
		return nil, err
	}

	return &models.GiftVerification{
		Token:      models.NewIssuedToken(token, now),
		Status:     status,
		Gift:       gift,
		Customer:   *customer,
		Wallet:     wallet,
		Sufficient: wallet.CanSpend(spendCost(gift)),
	}, nil
}

// customerContext loads what a business sees about a customer at its
// counter. A customer without a wallet yet gets an empty one.
func (s *redemptionService) customerContext(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.CustomerSummary, *models.Wallet, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, nil, notFound(err, ErrCustomerNotFound)
	}
	summary := customer.Summary()

	wallet, err := s.walletRepo.Get(ctx, customerID, businessID)
	if errors.Is(err, interfaces.ErrNotFound) {
		wallet = &models.Wallet{
			CustomerID:   customerID,
			BusinessID:   businessID,
			StampsTarget: int64(s.config.DefaultStampsTarget),
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &summary, wallet, nil
}

func (s *redemptionService) getBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.Business, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, notFound(err, ErrBusinessNotFound)
	}
	return business, nil
}

// createToken inserts a fresh token, drawing a new value when the random
// one collides with an existing token.
func (s *redemptionService) createToken(ctx context.Context, businessID primitive.ObjectID, payload models.TokenPayload, requestedBy *primitive.ObjectID) (*models.QRToken, error) {
	for attempt := 0; attempt < tokenCreateAttempts; attempt++ {
		value, err := utils.GenerateTokenValue(utils.DynamicTokenBytes)
		if err != nil {
			return nil, err
		}

		token := models.NewQRToken(value, businessID, payload, s.now(), s.config.QRTokenTTL)
		token.RequestedBy = requestedBy

		err = s.tokenRepo.Create(ctx, token)
		if err == nil {
			s.metrics.ObserveTransition(string(token.Kind), string(token.Status))
			return token, nil
		}
		if !errors.Is(err, interfaces.ErrDuplicateKey) {
			return nil, fmt.Errorf("failed to create qr token: %w", err)
		}
	}
	return nil, ErrDuplicateValue
}

func (s *redemptionService) staticQRError(err error) error {
	if errors.Is(err, interfaces.ErrDuplicateKey) {
		return ErrDuplicateValue
	}
	return notFound(err, ErrBusinessNotFound)
}

func (s *redemptionService) transitionError(err error, operation string) error {
	if errors.Is(err, interfaces.ErrTransitionConflict) {
		s.metrics.ObserveConflict(operation)
		return ErrInvalidOrExpired
	}
	return fmt.Errorf("failed to update qr token: %w", err)
}

func checkFirm(expected *primitive.ObjectID, actual primitive.ObjectID) error {
	if expected != nil && *expected != actual {
		return &FirmMismatchError{Expected: *expected, Actual: actual}
	}
	return nil
}

// statusError explains why a token in the given effective status cannot
// move to the requested one.
func statusError(token *models.QRToken, status, to models.TokenStatus) error {
	switch status {
	case models.TokenStatusUsed, models.TokenStatusCancelled, models.TokenStatusConfirming:
		return &TransitionError{TokenID: token.ID, From: status, To: to}
	default:
		return ErrInvalidOrExpired
	}
}

// cancelOutcome is the answer to a cancel that did not change the token.
// A token that is already final needs nothing more. Anything else, such as a
// token held by a running confirm, was not cancelled and the caller must know.
func cancelOutcome(token *models.QRToken, now time.Time) error {
	status := token.EffectiveStatus(now)
	if status.IsTerminal() {
		return nil
	}
	return &TransitionError{TokenID: token.ID, From: status, To: models.TokenStatusCancelled}
}

func spendCost(gift models.GiftPayload) (points, gifts int64) {
	if gift.UseEntitlement {
		return 0, 1
	}
	return gift.PointCost, 0
}

// reward is the ledger change a confirmed token produces.
type reward struct {
	kind           models.TransactionType
	stamps         int64
	points         int64
	pointsCost     int64
	giftsCost      int64
	purchaseAmount float64
	description    string
}

func (s *redemptionService) planReward(token *models.QRToken, business *models.Business, request *models.ConfirmRequest) reward {
	switch payload := token.Payload().(type) {
	case models.GiftPayload:
		points, gifts := spendCost(payload)
		return reward{
			kind:        models.TransactionTypeGiftRedeem,
			pointsCost:  points,
			giftsCost:   gifts,
			description: "Redeemed " + payload.Title,
		}
	default:
		r := reward{
			kind:           models.TransactionTypePointEarn,
			stamps:         request.StampCount,
			points:         models.PointsForPurchase(request.PurchaseAmount, business.PointsPercentage(s.config.DefaultPointsPercentage)),
			purchaseAmount: request.PurchaseAmount,
		}
		if r.stamps > 0 {
			r.kind = models.TransactionTypeStampEarn
		}
		r.description = fmt.Sprintf("Earned %d stamps and %d points at %s", r.stamps, r.points, business.CompanyName)
		return r
	}
}

func (r reward) spend() bool {
	return r.kind == models.TransactionTypeGiftRedeem
}

func (r reward) transaction(customerID, businessID, tokenID primitive.ObjectID, now time.Time) *models.Transaction {
	transaction := &models.Transaction{
		CustomerID:     customerID,
		BusinessID:     businessID,
		Type:           r.kind,
		Category:       models.TransactionCategoryEarn,
		PointsDelta:    r.points,
		StampsDelta:    r.stamps,
		PurchaseAmount: r.purchaseAmount,
		Description:    r.description,
		QRTokenID:      &tokenID,
		CreatedAt:      now,
	}
	if r.spend() {
		transaction.Category = models.TransactionCategorySpend
		transaction.PointsDelta = -r.pointsCost
		transaction.GiftsDelta = -r.giftsCost
	}
	return transaction
}
