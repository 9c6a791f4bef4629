package telegram

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"offerdesk/internal/models"
)

// vietnameseTimestamp matches how vi-VN locales print a date and time
const vietnameseTimestamp = "15:04:05 2/1/2006"

// TextSender is the part of the dispatcher the notifier needs
type TextSender interface {
	SendText(ctx context.Context, text string) bool
}

// Notifier posts operational notices to the channel
type Notifier struct {
	sender TextSender
	loc    *time.Location
	now    func() time.Time
}

func NewNotifier(sender TextSender, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{sender: sender, loc: loc, now: time.Now}
}

// NotifyNewOffer announces an offer added to the loans sheet
func (n *Notifier) NotifyNewOffer(ctx context.Context, offer models.LoanOffer) bool {
	text := fmt.Sprintf(`🆕 <b>Kho vay mới được thêm</b>

📋 Tên: %s
🏷️ Loại: %s
🔗 Link Aff: %s
✅ Trạng thái: %s
📝 Mô tả: %s

Thời gian: %s`,
		offer.Name, offer.Type, offer.AffLink, offer.Status, offer.Description, n.timestamp())
	return n.sender.SendText(ctx, text)
}

// NotifyScheduledPost announces a post added to the schedule
func (n *Notifier) NotifyScheduledPost(ctx context.Context, post models.ScheduledPost) bool {
	text := fmt.Sprintf(`📅 <b>Bài viết được lên lịch</b>

📝 Tiêu đề: %s
🌐 Nền tảng: Telegram
⏰ Thời gian đăng: %s %s

Thời gian tạo: %s`,
		PostTitle(post.Content), post.Date, post.Time, n.timestamp())
	return n.sender.SendText(ctx, text)
}

// NotifyError reports a system error to the channel
func (n *Notifier) NotifyError(ctx context.Context, message string) bool {
	text := fmt.Sprintf(`⚠️ <b>Lỗi hệ thống</b>

%s

Thời gian: %s`, message, n.timestamp())
	return n.sender.SendText(ctx, text)
}

func (n *Notifier) timestamp() string {
	return n.now().In(n.loc).Format(vietnameseTimestamp)
}

// PostTitle is the first 50 characters of content followed by "..."
func PostTitle(content string) string {
	if utf8.RuneCountInString(content) <= 50 {
		return content + "..."
	}
	return string([]rune(content)[:50]) + "..."
}
