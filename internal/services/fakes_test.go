package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[primitive.ObjectID]*models.QRToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[primitive.ObjectID]*models.QRToken)}
}

func cloneToken(t *models.QRToken) *models.QRToken {
	c := *t
	return &c
}

func (r *memTokenRepo) Create(ctx context.Context, token *models.QRToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tokens {
		if existing.Value == token.Value {
			return interfaces.ErrDuplicateKey
		}
	}
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	r.tokens[token.ID] = cloneToken(token)
	return nil
}

func (r *memTokenRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.QRToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return cloneToken(token), nil
}

func (r *memTokenRepo) GetByValue(ctx context.Context, value string) (*models.QRToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.Value == value {
			return cloneToken(token), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memTokenRepo) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, transition interfaces.TokenTransition) (*models.QRToken, error) {
	if err := transition.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, interfaces.ErrTransitionConflict
	}
	matched := false
	for _, from := range transition.From {
		if token.Status == from {
			matched = true
		}
	}
	if !matched || (transition.Unexpired && !transition.Now.Before(token.ExpiresAt)) {
		return nil, interfaces.ErrTransitionConflict
	}
	token.Status = transition.To
	if transition.ScannedBy != nil {
		scanner := *transition.ScannedBy
		token.ScannedBy = &scanner
	}
	token.UpdatedAt = transition.Now
	return cloneToken(token), nil
}

func (r *memTokenRepo) LinkTransaction(ctx context.Context, id, transactionID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	token.TransactionID = &transactionID
	return nil
}

func (r *memTokenRepo) FindLatestScanned(ctx context.Context, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.QRToken
	for _, token := range r.tokens {
		if token.BusinessID != businessID || token.Status != models.TokenStatusScanned || !now.Before(token.ExpiresAt) {
			continue
		}
		if latest == nil || token.UpdatedAt.After(latest.UpdatedAt) {
			latest = token
		}
	}
	if latest == nil {
		return nil, interfaces.ErrNotFound
	}
	return cloneToken(latest), nil
}

func (r *memTokenRepo) FindActiveGiftForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (*models.QRToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.Kind == models.TokenKindGiftRedemption && token.BusinessID == businessID &&
			token.RequestedBy != nil && *token.RequestedBy == customerID &&
			token.Status == models.TokenStatusActive && now.Before(token.ExpiresAt) {
			return cloneToken(token), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memTokenRepo) CancelForCustomer(ctx context.Context, customerID, businessID primitive.ObjectID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, token := range r.tokens {
		if token.BusinessID != businessID {
			continue
		}
		if token.Status != models.TokenStatusActive && token.Status != models.TokenStatusScanned {
			continue
		}
		requested := token.RequestedBy != nil && *token.RequestedBy == customerID
		scanned := token.ScannedBy != nil && *token.ScannedBy == customerID
		if requested || scanned {
			token.Status = models.TokenStatusCancelled
			token.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, token := range r.tokens {
		stale := token.Status == models.TokenStatusConfirming && !token.UpdatedAt.After(now.Add(-models.ConfirmClaimTimeout))
		if stale || token.EffectiveStatus(now) == models.TokenStatusExpired && token.Status != models.TokenStatusExpired {
			token.Status = models.TokenStatusExpired
			token.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, token := range r.tokens {
		if token.Status.IsTerminal() && token.UpdatedAt.Before(cutoff) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) status(id primitive.ObjectID) models.TokenStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[id].Status
}

type walletKey struct{ customer, business primitive.ObjectID }

type memWalletRepo struct {
	mu      sync.Mutex
	wallets map[walletKey]*models.Wallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[walletKey]*models.Wallet)}
}

func (r *memWalletRepo) getOrCreateLocked(customerID, businessID primitive.ObjectID, target int64) *models.Wallet {
	key := walletKey{customerID, businessID}
	wallet, ok := r.wallets[key]
	if !ok {
		wallet = &models.Wallet{
			ID:           primitive.NewObjectID(),
			CustomerID:   customerID,
			BusinessID:   businessID,
			StampsTarget: target,
		}
		r.wallets[key] = wallet
	}
	return wallet
}

func (r *memWalletRepo) GetOrCreate(ctx context.Context, customerID, businessID primitive.ObjectID, stampsTarget int64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := *r.getOrCreateLocked(customerID, businessID, stampsTarget)
	return &w, nil
}

func (r *memWalletRepo) Get(ctx context.Context, customerID, businessID primitive.ObjectID) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.wallets[walletKey{customerID, businessID}]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	w := *wallet
	return &w, nil
}

func (r *memWalletRepo) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var wallets []*models.Wallet
	for key, wallet := range r.wallets {
		if key.customer == customerID {
			w := *wallet
			wallets = append(wallets, &w)
		}
	}
	return wallets, nil
}

func (r *memWalletRepo) Delete(ctx context.Context, customerID, businessID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := walletKey{customerID, businessID}
	if _, ok := r.wallets[key]; !ok {
		return interfaces.ErrNotFound
	}
	delete(r.wallets, key)
	return nil
}

func (r *memWalletRepo) ApplyEarn(ctx context.Context, customerID, businessID primitive.ObjectID, stampsDelta, pointsDelta, stampsTarget int64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet := r.getOrCreateLocked(customerID, businessID, stampsTarget)
	wallet.Earn(stampsDelta, pointsDelta, time.Now())
	w := *wallet
	return &w, nil
}

func (r *memWalletRepo) ApplySpend(ctx context.Context, customerID, businessID primitive.ObjectID, pointsCost, gifts int64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.wallets[walletKey{customerID, businessID}]
	if !ok || !wallet.CanSpend(pointsCost, gifts) {
		return nil, interfaces.ErrInsufficientBalance
	}
	wallet.Points -= pointsCost
	wallet.GiftsCount -= gifts
	w := *wallet
	return &w, nil
}

func (r *memWalletRepo) put(wallet *models.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[walletKey{wallet.CustomerID, wallet.BusinessID}] = wallet
}

// hookedWalletRepo runs a callback inside the wallet update, between the
// token claim and its outcome.
type hookedWalletRepo struct {
	*memWalletRepo
	beforeUpdate func()
	earnErr      error
}

func (r *hookedWalletRepo) ApplySpend(ctx context.Context, customerID, businessID primitive.ObjectID, pointsCost, gifts int64) (*models.Wallet, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	return r.memWalletRepo.ApplySpend(ctx, customerID, businessID, pointsCost, gifts)
}

func (r *hookedWalletRepo) ApplyEarn(ctx context.Context, customerID, businessID primitive.ObjectID, stampsDelta, pointsDelta, stampsTarget int64) (*models.Wallet, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	if r.earnErr != nil {
		return nil, r.earnErr
	}
	return r.memWalletRepo.ApplyEarn(ctx, customerID, businessID, stampsDelta, pointsDelta, stampsTarget)
}

type memTransactionRepo struct {
	mu           sync.Mutex
	transactions []*models.Transaction
	appendErr    error
	attachErr    error
}

func (r *memTransactionRepo) Append(ctx context.Context, transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	transaction.ID = primitive.NewObjectID()
	t := *transaction
	r.transactions = append(r.transactions, &t)
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transactions {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memTransactionRepo) list(match func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, t := range r.transactions {
		if match(t) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memTransactionRepo) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(func(t *models.Transaction) bool { return t.CustomerID == customerID })
	return out, int64(len(out)), nil
}

func (r *memTransactionRepo) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(func(t *models.Transaction) bool { return t.BusinessID == businessID })
	return out, int64(len(out)), nil
}

func (r *memTransactionRepo) ListUnreviewed(ctx context.Context, customerID primitive.ObjectID) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(t *models.Transaction) bool {
		return t.CustomerID == customerID && t.Category == models.TransactionCategoryEarn && t.ReviewID == nil
	}), nil
}

func (r *memTransactionRepo) AttachReview(ctx context.Context, id, reviewID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attachErr != nil {
		return r.attachErr
	}
	for _, t := range r.transactions {
		if t.ID == id {
			if t.ReviewID != nil {
				return interfaces.ErrAlreadyLinked
			}
			t.ReviewID = &reviewID
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *memTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transactions)
}

type memBusinessRepo struct {
	mu         sync.Mutex
	businesses map[primitive.ObjectID]*models.Business
}

func newMemBusinessRepo(businesses ...*models.Business) *memBusinessRepo {
	r := &memBusinessRepo{businesses: make(map[primitive.ObjectID]*models.Business)}
	for _, b := range businesses {
		r.businesses[b.ID] = b
	}
	return r
}

func (r *memBusinessRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *memBusinessRepo) GetByStaticQR(ctx context.Context, value string) (*models.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.businesses {
		if b.StaticQR != "" && b.StaticQR == value {
			c := *b
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memBusinessRepo) SetStaticQR(ctx context.Context, id primitive.ObjectID, value string, onlyIfUnset bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.businesses[id]
	if !ok {
		return false, interfaces.ErrNotFound
	}
	if onlyIfUnset && b.StaticQR != "" {
		return false, nil
	}
	b.StaticQR = value
	return true, nil
}

type memCustomerRepo struct {
	mu        sync.Mutex
	customers map[primitive.ObjectID]*models.Customer
}

func newMemCustomerRepo(customers ...*models.Customer) *memCustomerRepo {
	r := &memCustomerRepo{customers: make(map[primitive.ObjectID]*models.Customer)}
	for _, c := range customers {
		r.customers[c.ID] = c
	}
	return r
}

func (r *memCustomerRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCustomerRepo) UpdateDeviceTokens(ctx context.Context, id primitive.ObjectID, fcmToken, apnsToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	c.FCMToken = fcmToken
	c.APNSToken = apnsToken
	return nil
}

type memGiftRepo struct {
	gifts map[primitive.ObjectID]*models.Gift
}

func newMemGiftRepo(gifts ...*models.Gift) *memGiftRepo {
	r := &memGiftRepo{gifts: make(map[primitive.ObjectID]*models.Gift)}
	for _, g := range gifts {
		r.gifts[g.ID] = g
	}
	return r
}

func (r *memGiftRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Gift, error) {
	g, ok := r.gifts[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return g, nil
}

func (r *memGiftRepo) ListByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]*models.Gift, error) {
	var out []*models.Gift
	for _, g := range r.gifts {
		if g.BusinessID == businessID && g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

type memReviewRepo struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*models.Review
}

func (r *memReviewRepo) Create(ctx context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reviews == nil {
		r.reviews = make(map[primitive.ObjectID]*models.Review)
	}
	if _, exists := r.reviews[review.TransactionID]; exists {
		return interfaces.ErrDuplicateKey
	}
	review.ID = primitive.NewObjectID()
	r.reviews[review.TransactionID] = review
	return nil
}

func (r *memReviewRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for transactionID, review := range r.reviews {
		if review.ID == id {
			delete(r.reviews, transactionID)
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *memReviewRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reviews)
}

type sentEvent struct {
	userID primitive.ObjectID
	role   models.UserRole
	event  models.EventType
	data   map[string]interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) NotifyCustomer(customerID primitive.ObjectID, eventType models.EventType, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{customerID, models.UserRoleCustomer, eventType, data})
}

func (n *recordingNotifier) NotifyBusiness(businessID primitive.ObjectID, eventType models.EventType, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{businessID, models.UserRoleBusiness, eventType, data})
}

func (n *recordingNotifier) ofType(eventType models.EventType) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.events {
		if e.event == eventType {
			out = append(out, e)
		}
	}
	return out
}
