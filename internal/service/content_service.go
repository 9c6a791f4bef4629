package service

import (
	"context"
	"fmt"
	"log"

	"offerdesk/internal/models"
	"offerdesk/internal/telegram"
	"offerdesk/internal/validation"
)

// ContentService manages the schedule sheet and sends posts to the channel
type ContentService struct {
	sheets   SheetGateway
	sender   Sender
	notifier Notifier
}

func NewContentService(sheets SheetGateway, sender Sender, notifier Notifier) *ContentService {
	return &ContentService{sheets: sheets, sender: sender, notifier: notifier}
}

// List returns all scheduled posts in sheet order
func (s *ContentService) List(ctx context.Context) ([]models.ScheduledPost, error) {
	return s.sheets.ReadPosts(ctx)
}

// Create appends a post and announces it on the channel
func (s *ContentService) Create(ctx context.Context, post models.ScheduledPost) (models.ScheduledPost, error) {
	if post.Status == "" {
		post.Status = models.PostStatusPending
	}
	if err := validation.ValidatePost(post); err != nil {
		return models.ScheduledPost{}, err
	}

	if err := s.sheets.AppendPost(ctx, post); err != nil {
		return models.ScheduledPost{}, fmt.Errorf("failed to add post: %w", err)
	}

	if !s.notifier.NotifyScheduledPost(ctx, post) {
		log.Printf("Post for %s %s saved but channel notice was not sent", post.Date, post.Time)
	}
	return post, nil
}

// Update overwrites the post at index
func (s *ContentService) Update(ctx context.Context, index int, post models.ScheduledPost) (models.ScheduledPost, error) {
	if post.Status == "" {
		post.Status = models.PostStatusPending
	}
	if err := validation.ValidatePost(post); err != nil {
		return models.ScheduledPost{}, err
	}
	if _, err := s.get(ctx, index); err != nil {
		return models.ScheduledPost{}, err
	}

	if err := s.sheets.UpdatePost(ctx, index, post); err != nil {
		return models.ScheduledPost{}, fmt.Errorf("failed to update post %d: %w", index, err)
	}
	return post, nil
}

// Delete removes the post at index
func (s *ContentService) Delete(ctx context.Context, index int) error {
	if _, err := s.get(ctx, index); err != nil {
		return err
	}
	if err := s.sheets.DeletePost(ctx, index); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", index, err)
	}
	return nil
}

// SendTest sends msg without touching the schedule
func (s *ContentService) SendTest(ctx context.Context, msg telegram.Message) error {
	if !s.sender.Send(ctx, msg) {
		return ErrSendFailed
	}
	return nil
}

// SendTestPost sends the post at index without changing its status
func (s *ContentService) SendTestPost(ctx context.Context, index int) error {
	post, err := s.get(ctx, index)
	if err != nil {
		return err
	}
	return s.SendTest(ctx, messageFor(post))
}

// Broadcast sends the post at index now and marks it Done
func (s *ContentService) Broadcast(ctx context.Context, index int) (models.ScheduledPost, error) {
	post, err := s.get(ctx, index)
	if err != nil {
		return models.ScheduledPost{}, err
	}

	if !s.sender.Send(ctx, messageFor(post)) {
		s.alert(ctx, fmt.Sprintf("Broadcast of post %d (%s %s) failed: Telegram did not accept the message", index, post.Date, post.Time))
		return models.ScheduledPost{}, ErrSendFailed
	}

	post.Status = models.PostStatusDone
	if err := s.sheets.UpdatePost(ctx, index, post); err != nil {
		s.alert(ctx, fmt.Sprintf("Post %d (%s %s) was sent but its status was not updated in the sheet", index, post.Date, post.Time))
		return models.ScheduledPost{}, fmt.Errorf("post %d sent but status not updated: %w", index, err)
	}
	log.Printf("Broadcast post %d (%s %s)", index, post.Date, post.Time)
	return post, nil
}

func (s *ContentService) alert(ctx context.Context, message string) {
	log.Println(message)
	if !s.notifier.NotifyError(ctx, message) {
		log.Printf("Error notice was not delivered to the channel")
	}
}

func (s *ContentService) get(ctx context.Context, index int) (models.ScheduledPost, error) {
	posts, err := s.sheets.ReadPosts(ctx)
	if err != nil {
		return models.ScheduledPost{}, err
	}
	if index < 0 || index >= len(posts) {
		return models.ScheduledPost{}, ErrPostNotFound
	}
	return posts[index], nil
}

func messageFor(post models.ScheduledPost) telegram.Message {
	return telegram.Message{
		Content:    post.Content,
		ImageLink:  post.ImageLink,
		ButtonLink: post.ButtonLink,
	}
}
