package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"offerdesk/internal/models"
	"offerdesk/internal/validation"
)

// OfferService manages the loans sheet
type OfferService struct {
	sheets   SheetGateway
	notifier Notifier
}

func NewOfferService(sheets SheetGateway, notifier Notifier) *OfferService {
	return &OfferService{sheets: sheets, notifier: notifier}
}

// List returns all offers
func (s *OfferService) List(ctx context.Context) ([]models.LoanOffer, error) {
	return s.sheets.ReadOffers(ctx)
}

// Create validates and appends an offer, then announces it. A failed
// announcement does not fail the create.
func (s *OfferService) Create(ctx context.Context, offer models.LoanOffer) (models.LoanOffer, error) {
	offer.Name = strings.TrimSpace(offer.Name)
	offer.AffLink = strings.TrimSpace(offer.AffLink)
	offer.Description = strings.TrimSpace(offer.Description)
	if offer.Type == "" {
		offer.Type = models.OfferTypeWeb
	}
	if offer.Status == "" {
		offer.Status = models.OfferStatusActive
	}
	if err := validation.ValidateOffer(offer); err != nil {
		return models.LoanOffer{}, err
	}

	created, err := s.sheets.AppendOffer(ctx, offer)
	if err != nil {
		return models.LoanOffer{}, fmt.Errorf("failed to add offer: %w", err)
	}

	if !s.notifier.NotifyNewOffer(ctx, created) {
		log.Printf("New offer %s saved but channel notice was not sent", created.ID)
	}
	return created, nil
}
