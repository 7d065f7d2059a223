package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

// immediateThreshold triggers an out-of-band admin alert once this many
// issues are queued.
const immediateThreshold = 5

// AdminSender delivers a message to the admin chat.
type AdminSender interface {
	NotifyAdmin(text string) error
}

// AdminNotifier batches operational issues into a daily summary for the
// admin, with an immediate alert when the queue grows too fast.
type AdminNotifier struct {
	repo   store.Repo
	sender AdminSender
	log    *zap.Logger
}

// NewAdminNotifier builds an AdminNotifier. sender may be nil when no admin
// is configured; notes are still queued.
func NewAdminNotifier(repo store.Repo, sender AdminSender, log *zap.Logger) *AdminNotifier {
	return &AdminNotifier{repo: repo, sender: sender, log: log.Named("admin_notifier")}
}

// Record queues one issue and fires an immediate alert once the queue
// reaches the threshold.
func (a *AdminNotifier) Record(ctx context.Context, note *domain.AdminNote) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if err := a.repo.AddAdminNote(ctx, note); err != nil {
		a.log.Error("queue admin note", zap.String("type", note.Type), zap.Error(err))
		return
	}

	pending, err := a.repo.PendingAdminNotes(ctx)
	if err != nil {
		a.log.Error("count pending admin notes", zap.Error(err))
		return
	}
	if len(pending) >= immediateThreshold {
		a.flush(ctx, pending, "⚠️ <b>Immediate alert</b>")
	}
}

// DailySummary sends the queued issues once per UTC day. Quiet days send nothing.
func (a *AdminNotifier) DailySummary(ctx context.Context, now time.Time) {
	date := now.UTC().Format(domain.DateLayout)

	sent, err := a.repo.AdminNotifiedToday(ctx, date)
	if err != nil {
		a.log.Error("check daily summary state", zap.Error(err))
		return
	}
	if sent {
		return
	}

	pending, err := a.repo.PendingAdminNotes(ctx)
	if err != nil {
		a.log.Error("load pending admin notes", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	if a.flush(ctx, pending, "📋 <b>Daily summary</b>") {
		if err := a.repo.MarkAdminNotified(ctx, date); err != nil {
			a.log.Error("mark daily summary sent", zap.Error(err))
		}
	}
}

func (a *AdminNotifier) flush(ctx context.Context, pending []*domain.AdminNote, header string) bool {
	if a.sender == nil {
		return false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d issue(s)\n", header, len(pending))
	for _, n := range pending {
		fmt.Fprintf(&b, "\n• [%s]", n.Type)
		if n.UserID != 0 {
			fmt.Fprintf(&b, " user %d", n.UserID)
		}
		fmt.Fprintf(&b, ": %s", n.Message)
	}

	if err := a.sender.NotifyAdmin(b.String()); err != nil {
		a.log.Error("send admin summary", zap.Error(err))
		return false
	}
	if err := a.repo.ClearPendingAdminNotes(ctx); err != nil {
		a.log.Error("clear admin notes", zap.Error(err))
	}
	a.log.Info("admin summary sent", zap.Int("issues", len(pending)))
	return true
}
