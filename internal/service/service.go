package service

import (
	"context"
	"errors"

	"offerdesk/internal/models"
	"offerdesk/internal/telegram"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrSendFailed   = errors.New("telegram did not accept the message")
)

// SheetGateway is the typed spreadsheet access used by the services
type SheetGateway interface {
	ReadOffers(ctx context.Context) ([]models.LoanOffer, error)
	AppendOffer(ctx context.Context, offer models.LoanOffer) (models.LoanOffer, error)
	ReadPosts(ctx context.Context) ([]models.ScheduledPost, error)
	AppendPost(ctx context.Context, post models.ScheduledPost) error
	UpdatePost(ctx context.Context, index int, post models.ScheduledPost) error
	DeletePost(ctx context.Context, index int) error
	WritePosts(ctx context.Context, posts []models.ScheduledPost) error
	ReadConfig(ctx context.Context) ([]models.ConfigItem, error)
	WriteConfig(ctx context.Context, items []models.ConfigItem) error
}

// Sender delivers a message to the channel
type Sender interface {
	Send(ctx context.Context, msg telegram.Message) bool
}

// Notifier posts operational notices to the channel
type Notifier interface {
	NotifyNewOffer(ctx context.Context, offer models.LoanOffer) bool
	NotifyScheduledPost(ctx context.Context, post models.ScheduledPost) bool
	NotifyError(ctx context.Context, message string) bool
}
