package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stampcard/internal/config"
	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type redemptionFixture struct {
	service      *redemptionService
	tokens       *memTokenRepo
	wallets      *memWalletRepo
	transactions *memTransactionRepo
	businesses   *memBusinessRepo
	notifier     *recordingNotifier
	business     *models.Business
	other        *models.Business
	customer     *models.Customer
	gift         *models.Gift
	clock        time.Time
	mu           sync.Mutex
}

func newRedemptionFixture(t *testing.T) *redemptionFixture {
	t.Helper()

	f := &redemptionFixture{
		tokens:       newMemTokenRepo(),
		wallets:      newMemWalletRepo(),
		transactions: &memTransactionRepo{},
		notifier:     &recordingNotifier{},
		business:     &models.Business{ID: primitive.NewObjectID(), CompanyName: "Corner Coffee"},
		other:        &models.Business{ID: primitive.NewObjectID(), CompanyName: "Bakery"},
		customer:     &models.Customer{ID: primitive.NewObjectID(), Name: "Ada", Surname: "Byron"},
		clock:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.gift = &models.Gift{ID: primitive.NewObjectID(), BusinessID: f.business.ID, Title: "Free latte", PointCost: 80, IsActive: true}
	f.businesses = newMemBusinessRepo(f.business, f.other)

	cfg := &config.LoyaltyConfig{
		QRTokenTTL:              5 * time.Minute,
		DefaultStampsTarget:     6,
		DefaultPointsPercentage: 10,
	}
	f.service = NewRedemptionService(
		f.tokens,
		f.wallets,
		f.transactions,
		f.businesses,
		newMemCustomerRepo(f.customer),
		newMemGiftRepo(f.gift),
		f.notifier,
		cfg,
		logger.NewNop(),
	).(*redemptionService)
	f.service.now = f.now
	return f
}

func (f *redemptionFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *redemptionFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

// scannedCheckIn issues a check-in code and has the fixture customer scan it.
func (f *redemptionFixture) scannedCheckIn(t *testing.T) *models.IssuedToken {
	t.Helper()
	ctx := context.Background()

	issued, err := f.service.IssueCheckIn(ctx, f.business.ID)
	require.NoError(t, err)
	_, err = f.service.SubmitToken(ctx, f.customer.ID, issued.Value, &f.business.ID)
	require.NoError(t, err)
	return issued
}

func TestIssueCheckIn(t *testing.T) {
	f := newRedemptionFixture(t)

	issued, err := f.service.IssueCheckIn(context.Background(), f.business.ID)
	require.NoError(t, err)

	assert.Len(t, issued.Value, 32)
	assert.Equal(t, models.TokenKindCheckIn, issued.Kind)
	assert.Equal(t, int64(300), issued.ExpiresIn)
	assert.Equal(t, models.TokenStatusActive, f.tokens.status(issued.ID))

	_, err = f.service.IssueCheckIn(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestCheckInRoundTrip(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	f.wallets.put(&models.Wallet{CustomerID: f.customer.ID, BusinessID: f.business.ID, Stamps: 5, StampsTarget: 6})

	issued, err := f.service.IssueCheckIn(ctx, f.business.ID)
	require.NoError(t, err)

	submitted, err := f.service.SubmitToken(ctx, f.customer.ID, issued.Value, &f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusScanned, submitted.Status)
	assert.Equal(t, "Corner Coffee", submitted.Business.CompanyName)
	require.Len(t, f.notifier.ofType(models.EventTokenScanned), 1)
	assert.Equal(t, f.business.ID, f.notifier.ofType(models.EventTokenScanned)[0].userID)

	poll, err := f.service.PollBusiness(ctx, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, "scanned", poll.Status)
	require.NotNil(t, poll.Customer)
	assert.Equal(t, "Ada", poll.Customer.Name)
	assert.Equal(t, int64(5), poll.Wallet.Stamps)

	result, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{
		TokenID:        issued.ID,
		StampCount:     3,
		PurchaseAmount: 12.5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeStampEarn, result.Type)
	assert.Equal(t, int64(2), result.Wallet.Stamps)
	assert.Equal(t, int64(1), result.Wallet.GiftsCount)
	assert.Equal(t, int64(1), result.Wallet.Points)
	require.NotNil(t, result.TransactionID)

	assert.Equal(t, 1, f.transactions.count())
	stored, err := f.tokens.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusUsed, stored.Status)
	assert.Equal(t, result.TransactionID, stored.TransactionID)

	completed := f.notifier.ofType(models.EventTokenCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, f.customer.ID, completed[0].userID)

	status, err := f.service.PollCustomerStatus(ctx, f.customer.ID, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusCompleted, status.Status)
	assert.Equal(t, result.TransactionID, status.TransactionID)

	poll, err = f.service.PollBusiness(ctx, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BusinessPollWaiting, poll.Status)
}

func TestPointsOnlyPurchase(t *testing.T) {
	f := newRedemptionFixture(t)
	f.business.Settings.PointsPercentage = 5
	issued := f.scannedCheckIn(t)

	result, err := f.service.ConfirmToken(context.Background(), f.business.ID, &models.ConfirmRequest{
		TokenID:        issued.ID,
		PurchaseAmount: 99.99,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypePointEarn, result.Type)
	assert.Equal(t, int64(4), result.PointsDelta)
	assert.Equal(t, int64(1), result.Wallet.TotalVisits)
}

func TestConcurrentConfirmSucceedsOnce(t *testing.T) {
	f := newRedemptionFixture(t)
	issued := f.scannedCheckIn(t)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ConfirmToken(context.Background(), f.business.ID, &models.ConfirmRequest{
				TokenID:    issued.ID,
				StampCount: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	}
	assert.Equal(t, 1, f.transactions.count())

	wallet, err := f.wallets.Get(context.Background(), f.customer.ID, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wallet.Stamps)
}

func TestConfirmUsedTokenIsInvalidTransition(t *testing.T) {
	f := newRedemptionFixture(t)
	issued := f.scannedCheckIn(t)
	request := &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1}

	_, err := f.service.ConfirmToken(context.Background(), f.business.ID, request)
	require.NoError(t, err)

	_, err = f.service.ConfirmToken(context.Background(), f.business.ID, request)
	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, models.TokenStatusUsed, transitionErr.From)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestConfirmRejectsUnscannedCheckIn(t *testing.T) {
	f := newRedemptionFixture(t)
	issued, err := f.service.IssueCheckIn(context.Background(), f.business.ID)
	require.NoError(t, err)

	_, err = f.service.ConfirmToken(context.Background(), f.business.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1})
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, models.TokenStatusActive, f.tokens.status(issued.ID))
}

func TestConfirmByOtherBusinessIsForbidden(t *testing.T) {
	f := newRedemptionFixture(t)
	issued := f.scannedCheckIn(t)

	_, err := f.service.ConfirmToken(context.Background(), f.other.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.TokenStatusScanned, f.tokens.status(issued.ID))

	_, err = f.service.ConfirmToken(context.Background(), f.business.ID, &models.ConfirmRequest{TokenID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()

	issued, err := f.service.IssueCheckIn(ctx, f.business.ID)
	require.NoError(t, err)
	f.advance(5 * time.Minute)

	_, err = f.service.SubmitToken(ctx, f.customer.ID, issued.Value, nil)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	scanned := f.scannedCheckIn(t)
	f.advance(6 * time.Minute)
	_, err = f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: scanned.ID, StampCount: 1})
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, 0, f.transactions.count())

	status, err := f.service.PollCustomerStatus(ctx, f.customer.ID, scanned.Value)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusExpired, status.Status)
}

func TestFirmMismatchLeavesTokenActive(t *testing.T) {
	f := newRedemptionFixture(t)
	issued, err := f.service.IssueCheckIn(context.Background(), f.business.ID)
	require.NoError(t, err)

	_, err = f.service.SubmitToken(context.Background(), f.customer.ID, issued.Value, &f.other.ID)
	var mismatch *FirmMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, f.other.ID, mismatch.Expected)
	assert.Equal(t, f.business.ID, mismatch.Actual)
	assert.ErrorIs(t, err, ErrFirmMismatch)
	assert.Equal(t, models.TokenStatusActive, f.tokens.status(issued.ID))
}

func TestSubmitUnknownValue(t *testing.T) {
	f := newRedemptionFixture(t)

	_, err := f.service.SubmitToken(context.Background(), f.customer.ID, "deadbeef", nil)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	status, err := f.service.PollCustomerStatus(context.Background(), f.customer.ID, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusExpired, status.Status)
}

func TestStaticTokenCheckIn(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()

	value, err := f.service.GetStaticToken(ctx, f.business.ID)
	require.NoError(t, err)
	assert.Len(t, value, 64)

	again, err := f.service.GetStaticToken(ctx, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, value, again)

	_, err = f.service.SubmitToken(ctx, f.customer.ID, value, &f.other.ID)
	assert.ErrorIs(t, err, ErrFirmMismatch)

	result, err := f.service.SubmitToken(ctx, f.customer.ID, value, &f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenKindCheckIn, result.Token.Kind)
	assert.NotEqual(t, value, result.Token.Value)
	assert.Equal(t, models.TokenStatusScanned, f.tokens.status(result.Token.ID))

	rotated, err := f.service.RotateStaticToken(ctx, f.business.ID)
	require.NoError(t, err)
	assert.NotEqual(t, value, rotated)

	_, err = f.service.SubmitToken(ctx, f.customer.ID, value, nil)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestStaticScanPicksPendingGift(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	f.wallets.put(&models.Wallet{CustomerID: f.customer.ID, BusinessID: f.business.ID, Points: 100, StampsTarget: 6})

	prepared, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	require.NoError(t, err)

	value, err := f.service.GetStaticToken(ctx, f.business.ID)
	require.NoError(t, err)

	result, err := f.service.SubmitToken(ctx, f.customer.ID, value, nil)
	require.NoError(t, err)
	assert.Equal(t, prepared.ID, result.Token.ID)
	assert.Equal(t, models.TokenKindGiftRedemption, result.Token.Kind)

	confirmed, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: prepared.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeGiftRedeem, confirmed.Type)
	assert.Equal(t, int64(-80), confirmed.PointsDelta)
	assert.Equal(t, int64(20), confirmed.Wallet.Points)
}

func TestPrepareGiftRedemption(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()

	_, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	f.wallets.put(&models.Wallet{CustomerID: f.customer.ID, BusinessID: f.business.ID, Points: 50, GiftsCount: 1, StampsTarget: 6})

	_, err = f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.other.ID, &f.gift.ID, false)
	assert.ErrorIs(t, err, ErrGiftNotFound)

	issued, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, nil, true)
	require.NoError(t, err)
	require.NotNil(t, issued.Gift)
	assert.True(t, issued.Gift.UseEntitlement)

	verification, err := f.service.VerifyGiftRedemption(ctx, f.business.ID, issued.Value)
	require.NoError(t, err)
	assert.True(t, verification.Sufficient)
	assert.Equal(t, "Ada", verification.Customer.Name)

	_, err = f.service.VerifyGiftRedemption(ctx, f.other.ID, issued.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	result, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: issued.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), result.GiftsDelta)
	assert.Equal(t, int64(0), result.Wallet.GiftsCount)
	assert.Equal(t, int64(50), result.Wallet.Points)
}

func TestConcurrentGiftRedemptionsNeverOverdraw(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	f.wallets.put(&models.Wallet{CustomerID: f.customer.ID, BusinessID: f.business.ID, Points: 100, StampsTarget: 6})

	first, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	require.NoError(t, err)
	second, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []primitive.ObjectID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: id})
		}(i, id)
	}
	wg.Wait()

	var succeeded, rejected int
	for i, err := range errs {
		id := []primitive.ObjectID{first.ID, second.ID}[i]
		if err == nil {
			succeeded++
			assert.Equal(t, models.TokenStatusUsed, f.tokens.status(id))
			continue
		}
		rejected++
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, models.TokenStatusActive, f.tokens.status(id))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	wallet, err := f.wallets.Get(ctx, f.customer.ID, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), wallet.Points)
	assert.Equal(t, 1, f.transactions.count())
}

func TestConfirmHoldsTokenWhileWalletChanges(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	f.wallets.put(&models.Wallet{CustomerID: f.customer.ID, BusinessID: f.business.ID, Points: 100, StampsTarget: 6})

	issued, err := f.service.PrepareGiftRedemption(ctx, f.customer.ID, f.business.ID, &f.gift.ID, false)
	require.NoError(t, err)

	var during struct {
		poll      *models.CustomerPoll
		pollErr   error
		cancelErr error
	}
	hooked := &hookedWalletRepo{memWalletRepo: f.wallets}
	hooked.beforeUpdate = func() {
		hooked.beforeUpdate = nil
		during.poll, during.pollErr = f.service.PollCustomerStatus(ctx, f.customer.ID, issued.Value)
		during.cancelErr = f.service.CancelToken(ctx, f.business.ID, issued.ID)
		// another till spends first
		_, err := f.wallets.ApplySpend(ctx, f.customer.ID, f.business.ID, 50, 0)
		require.NoError(t, err)
	}
	f.service.walletRepo = hooked

	_, err = f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: issued.ID})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, during.pollErr)
	assert.Equal(t, models.CustomerStatusPending, during.poll.Status)
	assert.ErrorIs(t, during.cancelErr, ErrInvalidTransition)
	assert.Empty(t, f.notifier.ofType(models.EventTokenCancelled))

	assert.Equal(t, models.TokenStatusActive, f.tokens.status(issued.ID))
	wallet, err := f.wallets.Get(ctx, f.customer.ID, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), wallet.Points)
	assert.Zero(t, f.transactions.count())

	require.NoError(t, f.service.CancelToken(ctx, f.business.ID, issued.ID))
	assert.Equal(t, models.TokenStatusCancelled, f.tokens.status(issued.ID))
}

func TestConfirmReleasesClaimWhenWalletFails(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	issued := f.scannedCheckIn(t)

	hooked := &hookedWalletRepo{memWalletRepo: f.wallets, earnErr: errors.New("connection reset")}
	f.service.walletRepo = hooked

	_, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, models.TokenStatusScanned, f.tokens.status(issued.ID))

	hooked.earnErr = nil
	result, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Wallet.Stamps)
	assert.Equal(t, models.TokenStatusUsed, f.tokens.status(issued.ID))
}

func TestReaperExpiresAbandonedConfirmClaim(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	issued := f.scannedCheckIn(t)

	_, err := f.tokens.CompareAndSetStatus(ctx, issued.ID, interfaces.TokenTransition{
		From: []models.TokenStatus{models.TokenStatusScanned},
		To:   models.TokenStatusConfirming,
		Now:  f.now(),
	})
	require.NoError(t, err)

	expired, err := f.tokens.ExpireStale(ctx, f.now().Add(models.ConfirmClaimTimeout/2))
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, models.TokenStatusConfirming, f.tokens.status(issued.ID))

	expired, err = f.tokens.ExpireStale(ctx, f.now().Add(models.ConfirmClaimTimeout))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, models.TokenStatusExpired, f.tokens.status(issued.ID))
}

func TestIllegalTransitionRejectedByStore(t *testing.T) {
	f := newRedemptionFixture(t)
	issued := f.scannedCheckIn(t)

	_, err := f.tokens.CompareAndSetStatus(context.Background(), issued.ID, interfaces.TokenTransition{
		From: []models.TokenStatus{models.TokenStatusScanned},
		To:   models.TokenStatusUsed,
	})
	assert.ErrorIs(t, err, interfaces.ErrIllegalTransition)
	assert.Equal(t, models.TokenStatusScanned, f.tokens.status(issued.ID))
}

func TestCancelToken(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	issued := f.scannedCheckIn(t)

	assert.ErrorIs(t, f.service.CancelToken(ctx, f.other.ID, issued.ID), ErrForbidden)

	require.NoError(t, f.service.CancelToken(ctx, f.business.ID, issued.ID))
	assert.Equal(t, models.TokenStatusCancelled, f.tokens.status(issued.ID))

	cancelled := f.notifier.ofType(models.EventTokenCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, f.customer.ID, cancelled[0].userID)

	// Cancelling again is a no-op.
	require.NoError(t, f.service.CancelToken(ctx, f.business.ID, issued.ID))
	assert.Len(t, f.notifier.ofType(models.EventTokenCancelled), 1)

	_, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	status, err := f.service.PollCustomerStatus(ctx, f.customer.ID, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusCancelled, status.Status)

	assert.ErrorIs(t, f.service.CancelToken(ctx, f.business.ID, primitive.NewObjectID()), ErrTokenNotFound)
}

func TestConfirmSurvivesTransactionLogFailure(t *testing.T) {
	f := newRedemptionFixture(t)
	issued := f.scannedCheckIn(t)
	f.transactions.appendErr = errors.New("write concern timeout")

	result, err := f.service.ConfirmToken(context.Background(), f.business.ID, &models.ConfirmRequest{TokenID: issued.ID, StampCount: 2})
	require.NoError(t, err)
	assert.Nil(t, result.TransactionID)
	assert.Equal(t, int64(2), result.Wallet.Stamps)
	assert.Equal(t, models.TokenStatusUsed, f.tokens.status(issued.ID))
}

func TestGetBusinessTokenStatus(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()

	issued, err := f.service.IssueCheckIn(ctx, f.business.ID)
	require.NoError(t, err)

	status, err := f.service.GetBusinessTokenStatus(ctx, f.business.ID, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusActive, status.Status)
	assert.Nil(t, status.Customer)

	_, err = f.service.SubmitToken(ctx, f.customer.ID, issued.Value, nil)
	require.NoError(t, err)

	status, err = f.service.GetBusinessTokenStatus(ctx, f.business.ID, issued.Value)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusScanned, status.Status)
	require.NotNil(t, status.Customer)
	assert.Equal(t, f.customer.ID, status.Customer.ID)
	assert.Equal(t, int64(6), status.Wallet.StampsTarget)

	_, err = f.service.GetBusinessTokenStatus(ctx, f.other.ID, issued.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDisconnectCustomer(t *testing.T) {
	f := newRedemptionFixture(t)
	ctx := context.Background()
	accounts := NewAccountService(f.wallets, newMemGiftRepo(), newMemCustomerRepo(f.customer), f.tokens, f.notifier, logger.NewNop()).(*accountService)
	accounts.now = f.now

	confirmed := f.scannedCheckIn(t)
	_, err := f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: confirmed.ID, StampCount: 2})
	require.NoError(t, err)
	open := f.scannedCheckIn(t)
	unclaimed, err := f.service.IssueCheckIn(ctx, f.business.ID)
	require.NoError(t, err)

	require.NoError(t, accounts.DisconnectCustomer(ctx, f.business.ID, f.customer.ID))

	assert.Equal(t, models.TokenStatusCancelled, f.tokens.status(open.ID))
	assert.Equal(t, models.TokenStatusUsed, f.tokens.status(confirmed.ID))
	assert.Equal(t, models.TokenStatusActive, f.tokens.status(unclaimed.ID))
	_, err = f.wallets.Get(ctx, f.customer.ID, f.business.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	events := f.notifier.ofType(models.EventUserDisconnected)
	require.Len(t, events, 1)
	assert.Equal(t, f.customer.ID, events[0].userID)
	assert.Equal(t, int64(1), events[0].data["cancelled_tokens"])

	_, err = f.service.ConfirmToken(ctx, f.business.ID, &models.ConfirmRequest{TokenID: open.ID, StampCount: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.ErrorIs(t, accounts.DisconnectCustomer(ctx, f.business.ID, f.customer.ID), ErrWalletNotFound)
	assert.ErrorIs(t, accounts.DisconnectCustomer(ctx, f.other.ID, f.customer.ID), ErrWalletNotFound)
}
