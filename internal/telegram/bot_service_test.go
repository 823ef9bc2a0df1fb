package telegram_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"floodrescue/backend/internal/localization"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/notifier"
	"floodrescue/backend/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) FindActiveByPhone(ctx context.Context, phone string) (*models.Request, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

type fixedGeocoder string

func (g fixedGeocoder) Reverse(context.Context, models.Location) string { return string(g) }

func localizer(t *testing.T) *localization.Localizer {
	t.Helper()
	l, err := localization.Default()
	require.NoError(t, err)
	return l
}

func command(text, lang string) *tgbotapi.Message {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		From:     &tgbotapi.User{ID: 12345, LanguageCode: lang},
		Chat:     &tgbotapi.Chat{ID: 12345, Type: "private"},
	}
}

func TestReply_TrackFindsActiveRequest(t *testing.T) {
	// Arrange
	tracker := new(MockTracker)
	r := &models.Request{
		ID:           "req-1",
		Status:       models.StatusInProgress,
		Severity:     models.SeverityCritical,
		RescuerID:    "resp-1",
		RescuerName:  "Minh",
		RescuerPhone: "0901",
		Timestamp:    time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC),
		Messages:     []models.ChatMessage{{ID: "m1"}},
	}
	tracker.On("FindActiveByPhone", mock.Anything, "+1-555-0123").Return(r, nil)
	bot := &telegram.BotService{Tracker: tracker, Geocoder: fixedGeocoder("District 1"), Localizer: localizer(t)}

	// Act
	text := bot.Reply(context.Background(), command("/track +1-555-0123", "en"))

	// Assert
	assert.Contains(t, text, "A responder is on the way")
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, "District 1")
	assert.Contains(t, text, "Minh 0901")
	assert.Contains(t, text, "*Messages:* 1")
	tracker.AssertExpectations(t)
}

func TestReply_TrackNotFoundAndUsage(t *testing.T) {
	// Arrange
	tracker := new(MockTracker)
	tracker.On("FindActiveByPhone", mock.Anything, "0000").Return(nil, nil)
	bot := &telegram.BotService{Tracker: tracker, Localizer: localizer(t)}

	// Act & Assert
	assert.Equal(t, "No active request was found for 0000.", bot.Reply(context.Background(), command("/track 0000", "en")))
	assert.Equal(t, localizer(t).GetString("vi", "track_usage"), bot.Reply(context.Background(), command("/track", "vi")))
	tracker.AssertNumberOfCalls(t, "FindActiveByPhone", 1)
}

func TestReply_TrackLookupError(t *testing.T) {
	// Arrange
	tracker := new(MockTracker)
	tracker.On("FindActiveByPhone", mock.Anything, "+84").Return(nil, errors.New("db down"))
	bot := &telegram.BotService{Tracker: tracker, Localizer: localizer(t)}

	// Act
	var text string
	require.NotPanics(t, func() {
		text = bot.Reply(context.Background(), command("/track +84", "en"))
	}, "a service without a logger still reports lookup errors")

	// Assert
	assert.Equal(t, "Something went wrong, please try again later.", text)
	tracker.AssertExpectations(t)
}

func TestHandleMessage_SendFailureWithoutLogger(t *testing.T) {
	// Arrange
	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(errors.New("bot was blocked by the user"))
	bot := &telegram.BotService{Sender: sender, Localizer: localizer(t)}

	// Act & Assert
	assert.NotPanics(t, func() { bot.HandleMessage(context.Background(), command("/help", "en")) })
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestReply_OtherCommands(t *testing.T) {
	// Arrange
	l := localizer(t)
	bot := &telegram.BotService{Localizer: l}

	// Act & Assert
	assert.Equal(t, l.GetString("en", "welcome"), bot.Reply(context.Background(), command("/start", "en")))
	assert.Equal(t, l.GetString("vi", "help"), bot.Reply(context.Background(), command("/help", "vi-VN")))
	assert.Equal(t, l.GetString("en", "unknown_command"), bot.Reply(context.Background(), command("/claim 1", "de")))

	group := &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: -100, Type: "group"}}
	assert.Empty(t, bot.Reply(context.Background(), group))
}

func TestHandleMessage_SendsMarkdownReply(t *testing.T) {
	// Arrange
	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 12345 && msg.ParseMode == tgbotapi.ModeMarkdown
	})).Return(nil)
	bot := &telegram.BotService{Sender: sender, Localizer: localizer(t)}

	// Act
	bot.HandleMessage(context.Background(), command("/help", "en"))

	// Assert
	sender.AssertExpectations(t)
}

func TestAlertRelay_SendsOnlyNewCriticalRequests(t *testing.T) {
	// Arrange
	sender := new(MockSender)
	var sent []string
	sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		sent = append(sent, args.Get(0).(tgbotapi.MessageConfig).Text)
	}).Return(nil)
	relay := telegram.NewAlertRelay(sender, -100, notifier.New(notifier.Critical), nil, localizer(t), "en", nil)

	a := models.Request{ID: "a", Status: models.StatusOpen, Severity: models.SeverityCritical, ContactName: "A"}
	b := models.Request{ID: "b", Status: models.StatusOpen, Severity: models.SeverityCritical, ContactName: "Sarah_J",
		ContactPhone: "+1-555-0123", Location: models.Location{Lat: 10.8, Lng: 106.7}}
	c := models.Request{ID: "c", Status: models.StatusOpen, Severity: models.SeveritySupplies}

	// Act
	relay.HandleSnapshot(models.Snapshot{Requests: []models.Request{a}})
	relay.HandleSnapshot(models.Snapshot{Requests: []models.Request{a, b, c}})

	// Assert
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `Sarah\_J +1-555-0123`)
	assert.Contains(t, sent[0], "10.80000, 106.70000")
}

func TestAlertRelay_SendFailureIsLogged(t *testing.T) {
	// Arrange
	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(errors.New("chat not found"))
	relay := telegram.NewAlertRelay(sender, -100, notifier.New(notifier.Critical), fixedGeocoder("Somewhere"), localizer(t), "en", nil)
	r := models.Request{ID: "a", Status: models.StatusOpen, Severity: models.SeverityCritical}

	// Act & Assert
	relay.HandleSnapshot(models.Snapshot{})
	assert.NotPanics(t, func() {
		relay.HandleSnapshot(models.Snapshot{Requests: []models.Request{r}})
	})
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestFormatAlert_Vietnamese(t *testing.T) {
	// Arrange
	r := models.Request{ContactName: "Lan", ContactPhone: "0901", Note: "Nước ngập tới mái"}

	// Act
	text := telegram.FormatAlert(localizer(t), "vi", r, "Quận 1")

	// Assert
	assert.Contains(t, text, "KHẨN CẤP")
	assert.Contains(t, text, "Lan 0901")
	assert.Contains(t, text, "Quận 1")
	assert.Contains(t, text, "Nước ngập tới mái")
}
