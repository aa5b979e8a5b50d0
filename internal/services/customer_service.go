package services

import (
	"context"

	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/repository"
)

// CustomerService serves the read-side bot commands and the ops API.
type CustomerService struct {
	store repository.Store
}

func NewCustomerService(store repository.Store) *CustomerService {
	return &CustomerService{store: store}
}

// GetOrCreate registers the customer on first contact and refreshes the
// profile fields on every later one.
func (s *CustomerService) GetOrCreate(ctx context.Context, chatID string, p models.Profile) (models.Customer, error) {
	return s.store.Customers().Upsert(ctx, chatID, p)
}

func (s *CustomerService) GetByChatID(ctx context.Context, chatID string) (models.Customer, error) {
	return s.store.Customers().GetByChatID(ctx, chatID)
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (models.Customer, error) {
	return s.store.Customers().GetByID(ctx, id)
}

// Overview backs the /balance command: the customer plus their approved
// transaction count.
func (s *CustomerService) Overview(ctx context.Context, chatID string) (models.Customer, int, error) {
	customer, err := s.store.Customers().GetByChatID(ctx, chatID)
	if err != nil {
		return models.Customer{}, 0, err
	}
	stats, err := s.store.Transactions().Stats(ctx, customer.ID, "")
	if err != nil {
		return models.Customer{}, 0, err
	}
	return customer, stats.ApprovedCount, nil
}

// History returns the customer's most recent transactions.
func (s *CustomerService) History(ctx context.Context, chatID string, limit int) ([]models.Transaction, error) {
	customer, err := s.store.Customers().GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByCustomer(ctx, customer.ID, limit)
}
