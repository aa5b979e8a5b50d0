package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory repository.Store. WithTx runs the callback
// against the same store under one lock, which is enough serialization for
// single-goroutine tests.
type memStore struct {
	mu        sync.Mutex
	customers map[string]*models.Customer
	byChat    map[string]string
	txns      map[string]*models.Transaction
	txnOrder  []string
	payments  map[string]*models.Payment
	payOrder  []string
	actions   []models.AdminAction
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[string]*models.Customer{},
		byChat:    map[string]string{},
		txns:      map[string]*models.Transaction{},
		payments:  map[string]*models.Payment{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) Customers() repository.Customers       { return (*memCustomers)(s) }
func (s *memStore) Transactions() repository.Transactions { return (*memTransactions)(s) }
func (s *memStore) Payments() repository.Payments         { return (*memPayments)(s) }
func (s *memStore) AdminActions() repository.AdminActions { return (*memAdminActions)(s) }

func (s *memStore) WithTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

// seedCustomer inserts a customer directly, bypassing Upsert.
func (s *memStore) seedCustomer(chatID string, balance decimal.Decimal) models.Customer {
	c := models.Customer{
		ID:        s.nextID("cust"),
		ChatID:    chatID,
		Balance:   balance,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.customers[c.ID] = &c
	s.byChat[chatID] = c.ID
	return c
}

// seedTxn inserts a transaction directly in the given status.
func (s *memStore) seedTxn(customerID, code string, status models.TransactionStatus, amount decimal.Decimal) models.Transaction {
	t := models.Transaction{
		ID:         s.nextID("txn"),
		CustomerID: customerID,
		Code:       code,
		Status:     status,
		Amount:     amount,
		CreatedAt:  time.Now(),
	}
	now := time.Now()
	switch status {
	case models.TxnApproved:
		t.ApprovedAt = &now
	case models.TxnRejected:
		t.RejectedAt = &now
	}
	s.txns[t.ID] = &t
	s.txnOrder = append(s.txnOrder, t.ID)
	return t
}

type memCustomers memStore

func (s *memCustomers) GetByID(_ context.Context, id string) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return models.Customer{}, models.ErrNotFound
	}
	return *c, nil
}

func (s *memCustomers) GetByChatID(_ context.Context, chatID string) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byChat[chatID]
	if !ok {
		return models.Customer{}, models.ErrNotFound
	}
	return *s.customers[id], nil
}

func (s *memCustomers) Upsert(_ context.Context, chatID string, p models.Profile) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byChat[chatID]; ok {
		c := s.customers[id]
		if p.Username != nil {
			c.Username = p.Username
		}
		if p.FirstName != nil {
			c.FirstName = p.FirstName
		}
		if p.LastName != nil {
			c.LastName = p.LastName
		}
		c.UpdatedAt = time.Now()
		return *c, nil
	}
	c := models.Customer{
		ID:        (*memStore)(s).nextID("cust"),
		ChatID:    chatID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.customers[c.ID] = &c
	s.byChat[chatID] = c.ID
	return c, nil
}

func (s *memCustomers) LockByID(ctx context.Context, id string) (models.Customer, error) {
	return s.GetByID(ctx, id)
}

func (s *memCustomers) AddBalance(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return decimal.Zero, models.ErrNotFound
	}
	next := c.Balance.Add(delta)
	if next.Sign() < 0 {
		return decimal.Zero, models.ErrInsufficientFunds
	}
	c.Balance = next
	return next, nil
}

type memTransactions memStore

func (s *memTransactions) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txns {
		if existing.Code == t.Code {
			return models.Transaction{}, models.ErrCodeInUse
		}
	}
	t.ID = (*memStore)(s).nextID("txn")
	t.CreatedAt = time.Now()
	s.txns[t.ID] = &t
	s.txnOrder = append(s.txnOrder, t.ID)
	return t, nil
}

func (s *memTransactions) GetByID(_ context.Context, id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	return *t, nil
}

func (s *memTransactions) LockByID(ctx context.Context, id string) (models.Transaction, error) {
	return s.GetByID(ctx, id)
}

func (s *memTransactions) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *memTransactions) Update(_ context.Context, t models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[t.ID]; !ok {
		return models.ErrNotFound
	}
	cp := t
	s.txns[t.ID] = &cp
	return nil
}

func (s *memTransactions) ListByCustomer(_ context.Context, customerID string, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.txnOrder) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.txns[s.txnOrder[i]]
		if t.CustomerID == customerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memTransactions) ListByStatus(_ context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, id := range s.txnOrder {
		if len(out) >= limit {
			break
		}
		t := s.txns[id]
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memTransactions) Stats(_ context.Context, customerID, excludeID string) (repository.CustomerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st repository.CustomerStats
	for _, t := range s.txns {
		if t.CustomerID != customerID {
			continue
		}
		st.TotalCount++
		switch t.Status {
		case models.TxnApproved:
			st.ApprovedCount++
		case models.TxnRejected:
			st.RejectedCount++
			if t.RejectedAt != nil && (st.LastRejectedAt == nil || t.RejectedAt.After(*st.LastRejectedAt)) {
				st.LastRejectedAt = t.RejectedAt
			}
		default:
			if t.ID != excludeID {
				st.OpenCount++
			}
		}
	}
	return st, nil
}

func (s *memTransactions) Summary(_ context.Context, dayStart, activeSince time.Time) (repository.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum repository.Summary
	active := map[string]bool{}
	for _, t := range s.txns {
		if !t.CreatedAt.Before(dayStart) {
			sum.TodayCount++
			if t.Status == models.TxnApproved {
				sum.TodayRevenue = sum.TodayRevenue.Add(t.Amount)
			}
		}
		if t.Status == models.TxnAdminReview {
			sum.PendingReview++
		}
		if !t.CreatedAt.Before(activeSince) {
			active[t.CustomerID] = true
		}
	}
	sum.ActiveCustomers = len(active)
	return sum, nil
}

type memPayments memStore

func (s *memPayments) Create(_ context.Context, p models.Payment) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = (*memStore)(s).nextID("pay")
	p.Status = models.PaymentPending
	p.CreatedAt = time.Now()
	s.payments[p.ID] = &p
	s.payOrder = append(s.payOrder, p.ID)
	return p, nil
}

func (s *memPayments) LockByID(_ context.Context, id string) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.Payment{}, models.ErrNotFound
	}
	return *p, nil
}

func (s *memPayments) LockPendingByAddress(_ context.Context, address string, amount decimal.Decimal) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.payOrder {
		p := s.payments[id]
		if p.Address == address && p.Status == models.PaymentPending && p.Amount.Equal(amount) {
			return *p, nil
		}
	}
	return models.Payment{}, models.ErrNotFound
}

func (s *memPayments) MarkConfirmed(_ context.Context, id, txHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return models.ErrAlreadyProcessed
	}
	p.Status = models.PaymentConfirmed
	p.TxHash = &txHash
	p.ConfirmedAt = &at
	return nil
}

func (s *memPayments) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return models.ErrAlreadyProcessed
	}
	p.Status = models.PaymentFailed
	return nil
}

func (s *memPayments) ListPendingBefore(_ context.Context, cutoff time.Time) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, id := range s.payOrder {
		p := s.payments[id]
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memAdminActions memStore

func (s *memAdminActions) Create(_ context.Context, a models.AdminAction) (models.AdminAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = (*memStore)(s).nextID("act")
	a.CreatedAt = time.Now()
	s.actions = append(s.actions, a)
	return a, nil
}

func (s *memAdminActions) ListByTransaction(_ context.Context, transactionID string) ([]models.AdminAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AdminAction
	for _, a := range s.actions {
		if a.TransactionID == transactionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// mockNotifier records every outbound call.
type mockNotifier struct {
	mu               sync.Mutex
	messages         []string
	paymentRequests  []string
	statusUpdates    []StatusKind
	approvalRequests []ApprovalRequest
	adminNotices     []string
}

func (m *mockNotifier) SendMessage(_ context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	return nil
}

func (m *mockNotifier) SendPaymentRequest(_ context.Context, chatID string, amount decimal.Decimal, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentRequests = append(m.paymentRequests, address)
	return nil
}

func (m *mockNotifier) SendStatusUpdate(_ context.Context, chatID string, kind StatusKind, u StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates = append(m.statusUpdates, kind)
	return nil
}

func (m *mockNotifier) SendApprovalRequest(_ context.Context, req ApprovalRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvalRequests = append(m.approvalRequests, req)
	return fmt.Sprintf("msg-%d", len(m.approvalRequests)), nil
}

func (m *mockNotifier) NotifyAdmin(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminNotices = append(m.adminNotices, text)
	return nil
}

func (m *mockNotifier) approvalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approvalRequests)
}

func (m *mockNotifier) kinds() []StatusKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusKind(nil), m.statusUpdates...)
}

// mockGateway quotes a fixed address.
type mockGateway struct {
	address string
	err     error
}

func (m *mockGateway) CreatePaymentRequest(_ context.Context, orderID string, amount decimal.Decimal) (PaymentQuote, error) {
	if m.err != nil {
		return PaymentQuote{}, m.err
	}
	addr := m.address
	if addr == "" {
		addr = "WALLET-1"
	}
	return PaymentQuote{Address: addr, Amount: amount}, nil
}
