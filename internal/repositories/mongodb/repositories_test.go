package mongodb

import (
	"context"
	"testing"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func noDocument() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}

func TestQRTokenRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	mt.Run("compare and set returns updated token", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		customerID := primitive.NewObjectID()
		token := models.NewQRToken("a1b2", primitive.NewObjectID(), models.CheckInPayload{}, now, 5*time.Minute)
		token.ID = primitive.NewObjectID()
		token.Status = models.TokenStatusScanned
		token.ScannedBy = &customerID

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, token)}))

		updated, err := repo.CompareAndSetStatus(ctx, token.ID, interfaces.TokenTransition{
			From:      []models.TokenStatus{models.TokenStatusActive},
			To:        models.TokenStatusScanned,
			ScannedBy: &customerID,
			Unexpired: true,
			Now:       now,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TokenStatusScanned, updated.Status)
		require.NotNil(t, updated.ScannedBy)
		assert.Equal(t, customerID, *updated.ScannedBy)
	})

	mt.Run("compare and set conflict", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(noDocument())

		_, err := repo.CompareAndSetStatus(ctx, primitive.NewObjectID(), interfaces.TokenTransition{
			From: []models.TokenStatus{models.TokenStatusConfirming},
			To:   models.TokenStatusUsed,
		})
		assert.ErrorIs(t, err, interfaces.ErrTransitionConflict)
	})

	mt.Run("illegal transition rejected before the query", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)

		_, err := repo.CompareAndSetStatus(ctx, primitive.NewObjectID(), interfaces.TokenTransition{
			From: []models.TokenStatus{models.TokenStatusUsed},
			To:   models.TokenStatusActive,
		})
		assert.ErrorIs(t, err, interfaces.ErrIllegalTransition)

		_, err = repo.CompareAndSetStatus(ctx, primitive.NewObjectID(), interfaces.TokenTransition{
			From: []models.TokenStatus{models.TokenStatusActive},
			To:   models.TokenStatusUsed,
		})
		assert.ErrorIs(t, err, interfaces.ErrIllegalTransition)

		_, err = repo.CompareAndSetStatus(ctx, primitive.NewObjectID(), interfaces.TokenTransition{
			To: models.TokenStatusCancelled,
		})
		assert.ErrorIs(t, err, interfaces.ErrIllegalTransition)
	})

	mt.Run("cancel for customer reports modified count", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}))

		cancelled, err := repo.CancelForCustomer(ctx, primitive.NewObjectID(), primitive.NewObjectID(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), cancelled)
	})

	mt.Run("create maps duplicate key", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		token := models.NewQRToken("dup", primitive.NewObjectID(), models.CheckInPayload{}, now, time.Minute)
		err := repo.Create(ctx, token)
		assert.ErrorIs(t, err, interfaces.ErrDuplicateKey)
	})

	mt.Run("get by value not found", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "stampcard.qr_tokens", mtest.FirstBatch))

		_, err := repo.GetByValue(ctx, "missing")
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("link transaction to missing token", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.LinkTransaction(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("expire stale reports modified count", func(mt *mtest.T) {
		repo := NewQRTokenRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}, bson.E{Key: "nModified", Value: 3}))

		expired, err := repo.ExpireStale(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), expired)
	})
}

func TestWalletRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("spend succeeds", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		wallet := &models.Wallet{
			ID:           primitive.NewObjectID(),
			CustomerID:   primitive.NewObjectID(),
			BusinessID:   primitive.NewObjectID(),
			Points:       20,
			StampsTarget: 10,
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, wallet)}))

		updated, err := repo.ApplySpend(ctx, wallet.CustomerID, wallet.BusinessID, 80, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), updated.Points)
	})

	mt.Run("spend without enough balance", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		mt.AddMockResponses(noDocument())

		_, err := repo.ApplySpend(ctx, primitive.NewObjectID(), primitive.NewObjectID(), 80, 0)
		assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
	})

	mt.Run("negative spend is rejected before the query", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		_, err := repo.ApplySpend(ctx, primitive.NewObjectID(), primitive.NewObjectID(), -1, 0)
		assert.Error(t, err)
	})

	mt.Run("earn retries a lost upsert race", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		wallet := &models.Wallet{
			ID:           primitive.NewObjectID(),
			CustomerID:   primitive.NewObjectID(),
			BusinessID:   primitive.NewObjectID(),
			Stamps:       2,
			StampsTarget: 6,
			GiftsCount:   1,
			TotalVisits:  1,
		}
		mt.AddMockResponses(
			duplicateKey(),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, wallet)}),
		)

		updated, err := repo.ApplyEarn(ctx, wallet.CustomerID, wallet.BusinessID, 8, 0, 6)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Stamps)
		assert.Equal(t, int64(1), updated.GiftsCount)
	})

	mt.Run("delete missing wallet", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("get missing wallet", func(mt *mtest.T) {
		repo := NewWalletRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "stampcard.customer_businesses", mtest.FirstBatch))

		_, err := repo.Get(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}

func TestTransactionRepositoryAttachReview(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("attaches once", func(mt *mtest.T) {
		repo := NewTransactionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		assert.NoError(t, repo.AttachReview(ctx, primitive.NewObjectID(), primitive.NewObjectID()))
	})

	mt.Run("already reviewed", func(mt *mtest.T) {
		repo := NewTransactionRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "stampcard.transactions", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := repo.AttachReview(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrAlreadyLinked)
	})

	mt.Run("missing transaction", func(mt *mtest.T) {
		repo := NewTransactionRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "stampcard.transactions", mtest.FirstBatch),
		)

		err := repo.AttachReview(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}

func TestTransactionRepositoryListCursorFailure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("error after the first batch", func(mt *mtest.T) {
		repo := NewTransactionRepository(mt.DB)
		first := toDoc(t, &models.Transaction{
			ID:         primitive.NewObjectID(),
			CustomerID: primitive.NewObjectID(),
			BusinessID: primitive.NewObjectID(),
			Type:       models.TransactionTypeStampEarn,
		})
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "stampcard.transactions", mtest.FirstBatch, bson.D{{Key: "n", Value: 2}}),
			mtest.CreateCursorResponse(1, "stampcard.transactions", mtest.FirstBatch, first),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 43, Name: "CursorNotFound", Message: "cursor killed"}),
		)

		_, _, err := repo.ListByCustomer(context.Background(), primitive.NewObjectID(), &utils.PaginationParams{Page: 1, PageSize: 10})
		assert.Error(t, err)
	})
}

func TestReviewRepositoryDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second review for a transaction", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		err := repo.Create(context.Background(), &models.Review{TransactionID: primitive.NewObjectID(), Rating: 4})
		assert.ErrorIs(t, err, interfaces.ErrDuplicateKey)
	})

	mt.Run("delete missing review", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}
