package service

import (
	"context"
	"strings"

	"offerdesk/internal/models"
	"offerdesk/internal/validation"
)

// ConfigService manages the free-form key/value config sheet
type ConfigService struct {
	sheets SheetGateway
}

func NewConfigService(sheets SheetGateway) *ConfigService {
	return &ConfigService{sheets: sheets}
}

func (s *ConfigService) List(ctx context.Context) ([]models.ConfigItem, error) {
	return s.sheets.ReadConfig(ctx)
}

// Save replaces every config row with items
func (s *ConfigService) Save(ctx context.Context, items []models.ConfigItem) error {
	cleaned := make([]models.ConfigItem, 0, len(items))
	for _, item := range items {
		item.Key = strings.TrimSpace(item.Key)
		if item.Key == "" {
			return validation.ValidationError{Field: "key", Message: "key is required"}
		}
		cleaned = append(cleaned, item)
	}
	return s.sheets.WriteConfig(ctx, cleaned)
}

// DashboardService summarises the sheets for the landing page
type DashboardService struct {
	sheets SheetGateway
}

func NewDashboardService(sheets SheetGateway) *DashboardService {
	return &DashboardService{sheets: sheets}
}

func (s *DashboardService) Stats(ctx context.Context) (models.DashboardStats, error) {
	offers, err := s.sheets.ReadOffers(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}
	posts, err := s.sheets.ReadPosts(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	stats := models.DashboardStats{TotalLoans: len(offers), ScheduledPosts: len(posts)}
	for _, offer := range offers {
		if offer.IsActive() {
			stats.ActiveLoans++
		}
	}
	for _, post := range posts {
		if post.IsPending() {
			stats.PendingPosts++
		}
	}
	return stats, nil
}
