// Package telegram runs the Telegram side of the service: a bot that lets
// requesters look up their request by phone, and a relay that posts new
// CRITICAL requests to a responders' chat.
package telegram

import (
	"context"
	"strings"
	"time"

	"floodrescue/backend/internal/geocode"
	"floodrescue/backend/internal/localization"
	"floodrescue/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI used to post messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Tracker resolves a contact phone to the caller's active request.
type Tracker interface {
	FindActiveByPhone(ctx context.Context, phone string) (*models.Request, error)
}

// Geocoder turns a location into a readable address.
type Geocoder interface {
	Reverse(ctx context.Context, loc models.Location) string
}

// BotService answers bot commands.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Sender    Sender
	Tracker   Tracker
	Geocoder  Geocoder
	Localizer *localization.Localizer
	logger    *zap.Logger
}

// NewBotService logs in with token.
func NewBotService(token string, tracker Tracker, geocoder Geocoder, localizer *localization.Localizer, logger *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Authorized on Telegram", zap.String("account", bot.Self.UserName))

	return &BotService{
		BotAPI:    bot,
		Sender:    bot,
		Tracker:   tracker,
		Geocoder:  geocoder,
		Localizer: localizer,
		logger:    logger,
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			s.HandleMessage(ctx, update.Message)
		}
	}
}

// HandleMessage sends the reply to msg, if any.
func (s *BotService) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := s.Reply(ctx, msg)
	if text == "" {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.Sender.Send(reply); err != nil {
		s.log().Error("Failed to send Telegram reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// Reply returns the text answering msg. Non-command messages get the
// welcome text in private chats and nothing in groups.
func (s *BotService) Reply(ctx context.Context, msg *tgbotapi.Message) string {
	lang := localization.DefaultLanguage
	if msg.From != nil {
		lang = s.Localizer.Language(msg.From.LanguageCode)
	}

	if !msg.IsCommand() {
		if msg.Chat != nil && msg.Chat.IsPrivate() {
			return s.Localizer.GetString(lang, "welcome")
		}
		return ""
	}

	switch msg.Command() {
	case "start":
		return s.Localizer.GetString(lang, "welcome")
	case "help":
		return s.Localizer.GetString(lang, "help")
	case "track":
		return s.track(ctx, lang, msg.CommandArguments())
	default:
		return s.Localizer.GetString(lang, "unknown_command")
	}
}

func (s *BotService) track(ctx context.Context, lang, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return s.Localizer.GetString(lang, "track_usage")
	}
	r, err := s.Tracker.FindActiveByPhone(ctx, phone)
	if err != nil {
		s.log().Error("Track lookup failed", zap.Error(err))
		return s.Localizer.GetString(lang, "error_generic")
	}
	if r == nil {
		return s.Localizer.Format(lang, "track_not_found", escape(phone))
	}
	return FormatStatus(s.Localizer, lang, r, s.address(ctx, r.Location))
}

// log falls back to a no-op logger for services built as struct literals.
func (s *BotService) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *BotService) address(ctx context.Context, loc models.Location) string {
	if s.Geocoder == nil {
		return geocode.Coordinates(loc)
	}
	return s.Geocoder.Reverse(ctx, loc)
}

// FormatStatus renders the /track answer for r.
func FormatStatus(l *localization.Localizer, lang string, r *models.Request, address string) string {
	var b strings.Builder
	b.WriteString(l.Format(lang, "track_status",
		l.GetString(lang, "status_"+string(r.Status)),
		r.Severity,
		r.Timestamp.UTC().Format(time.RFC822),
		escape(address),
	))
	if r.RescuerID != "" {
		b.WriteString(l.Format(lang, "track_rescuer", escape(r.RescuerName), escape(r.RescuerPhone)))
	}
	if n := len(r.Messages); n > 0 {
		b.WriteString(l.Format(lang, "track_unread", n))
	}
	return b.String()
}

// escape makes user supplied text safe for Markdown messages.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
