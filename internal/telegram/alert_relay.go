package telegram

import (
	"context"
	"time"

	"floodrescue/backend/internal/geocode"
	"floodrescue/backend/internal/localization"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/notifier"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const addressTimeout = 5 * time.Second

// AlertRelay posts every new matching request to one chat. Feed it the hub's
// snapshots with HubService.SubscribeFunc.
type AlertRelay struct {
	sender    Sender
	chatID    int64
	notifier  *notifier.Notifier
	geocoder  Geocoder
	localizer *localization.Localizer
	lang      string
	logger    *zap.Logger
}

func NewAlertRelay(sender Sender, chatID int64, n *notifier.Notifier, g Geocoder,
	l *localization.Localizer, lang string, logger *zap.Logger) *AlertRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertRelay{
		sender:    sender,
		chatID:    chatID,
		notifier:  n,
		geocoder:  g,
		localizer: l,
		lang:      lang,
		logger:    logger,
	}
}

// HandleSnapshot sends one alert per request that is new in snap.
func (a *AlertRelay) HandleSnapshot(snap models.Snapshot) {
	for _, r := range a.notifier.Observe(snap) {
		msg := tgbotapi.NewMessage(a.chatID, FormatAlert(a.localizer, a.lang, r, a.address(r.Location)))
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := a.sender.Send(msg); err != nil {
			a.log().Error("Failed to send alert", zap.String("request_id", r.ID), zap.Error(err))
			continue
		}
		a.log().Info("Alert sent", zap.String("request_id", r.ID))
	}
}

func (a *AlertRelay) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *AlertRelay) address(loc models.Location) string {
	if a.geocoder == nil {
		return geocode.Coordinates(loc)
	}
	ctx, cancel := context.WithTimeout(context.Background(), addressTimeout)
	defer cancel()
	return a.geocoder.Reverse(ctx, loc)
}

// FormatAlert renders the alert for a new request.
func FormatAlert(l *localization.Localizer, lang string, r models.Request, address string) string {
	contact := escape(r.ContactName) + " " + escape(r.ContactPhone)
	return l.Format(lang, "alert_critical", contact, escape(address), escape(r.Note))
}
