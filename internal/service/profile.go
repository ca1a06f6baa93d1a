package service

import (
	"context"

	"go.uber.org/zap"

	"municipality/internal/models"
	"municipality/internal/repository"
)

const defaultActivityLimit = 10

// UpdateProfile changes the phone of the account and the address and
// marital status of its citizen profile
func (s *IdentityService) UpdateProfile(ctx context.Context, accountID uint, payload models.UpdateProfilePayload) (*models.Profile, error) {
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		if payload.Phone != nil {
			account, err := tx.Accounts().GetByID(ctx, accountID)
			if err != nil {
				return lookupErr(err, "Account not found")
			}
			account.Phone = *payload.Phone
			if err := tx.Accounts().Update(ctx, account); err != nil {
				return storeErr(err, "failed to update account")
			}
		}

		if payload.Address == nil && payload.MaritalStatus == nil {
			return nil
		}
		citizen, err := tx.Citizens().GetByAccountID(ctx, accountID)
		if err != nil {
			return lookupErr(err, "Citizen profile not found")
		}
		if payload.Address != nil {
			citizen.Address = *payload.Address
		}
		if payload.MaritalStatus != nil {
			citizen.MaritalStatus = *payload.MaritalStatus
		}
		return storeErr(tx.Citizens().Update(ctx, citizen), "failed to update citizen")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", zap.Uint("account_id", accountID))
	return s.Me(ctx, accountID)
}

// RecentActivity returns the latest requests and notifications of a citizen
func (s *IdentityService) RecentActivity(ctx context.Context, citizenID uint, limit int) (*models.RecentActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultActivityLimit
	}

	requests, err := s.Store.Requests().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list requests")
	}
	notifications, err := s.Store.Notifications().ListByCitizen(ctx, citizenID, false)
	if err != nil {
		return nil, storeErr(err, "failed to list notifications")
	}

	return &models.RecentActivity{
		Requests:      truncate(requests, limit),
		Notifications: truncate(notifications, limit),
	}, nil
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
