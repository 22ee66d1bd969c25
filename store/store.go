// Package store defines the persistence interface and implementations.
// All operations are single-key reads and writes scoped by the WhatsApp id;
// nothing spans keys transactionally.
package store

import (
	"context"

	"github.com/opnlabs/donorbot/domain"
)

// Store defines durable persistence for donor records.
type Store interface {
	// Profile operations
	GetProfile(ctx context.Context, whatsappID string) (*domain.UserProfile, error)
	PutProfile(ctx context.Context, profile *domain.UserProfile) error

	// Donation operations
	PutDonation(ctx context.Context, donation *domain.DonationRecord) error
	ListDonations(ctx context.Context, whatsappID string) ([]domain.DonationRecord, error)

	// Subscription operations
	PutSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error
	ListSubscriptions(ctx context.Context, whatsappID string) ([]domain.SubscriptionRecord, error)

	// Conversation archive
	AppendTurn(ctx context.Context, turn *domain.ArchivedTurn) error
	ListTurns(ctx context.Context, whatsappID string, limit int) ([]domain.ArchivedTurn, error)

	// Lifecycle
	Close() error
}
