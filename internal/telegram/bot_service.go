// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, routing them into
// the complaint intake dialogue and rendering the replies.
package telegram

import (
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/intake"
	"complaintbot/backend/internal/localization"
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the subset of *tgbotapi.BotAPI used by the bot.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// IntakeHandler advances a conversation's intake dialogue.
type IntakeHandler interface {
	Handle(ctx context.Context, conv intake.Conversation, in intake.Input) (intake.Reply, error)
}

// BotService receives Telegram updates and drives the intake dialogue for each chat.
type BotService struct {
	BotAPI    BotAPI
	Intake    IntakeHandler
	Localizer *localization.Localizer
	queue     *chatQueue
}

// NewBotAPI authorizes against Telegram with the given token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	slog.Info("NewBotAPI: authorized", "account", bot.Self.UserName)
	return bot, nil
}

// NewBotService creates a new BotService instance.
func NewBotService(api BotAPI, h IntakeHandler, l *localization.Localizer) *BotService {
	return &BotService{
		BotAPI:    api,
		Intake:    h,
		Localizer: l,
		queue:     newChatQueue(),
	}
}

// Run is the main loop for receiving Telegram updates. It returns once ctx is
// cancelled and every message already received has been handled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	// Handlers outlive shutdown so accepted messages are finished, not dropped.
	workCtx := context.WithoutCancel(ctx)

	defer s.queue.Wait()
	for {
		select {
		case <-ctx.Done():
			slog.Info("BotService.Run: stopping updates")
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			s.queue.Enqueue(msg.Chat.ID, func() { s.HandleMessage(workCtx, msg) })
		}
	}
}

// HandleMessage routes one message through the intake dialogue and answers it.
func (s *BotService) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	lang := localization.DefaultLang
	conv := intake.Conversation{ID: chatID, UserID: chatID}
	if msg.From != nil {
		lang = s.Localizer.Lang(msg.From.LanguageCode)
		conv.UserID = msg.From.ID
	}

	in, handled := s.classify(msg, lang)
	if handled {
		return
	}

	reply, err := s.Intake.Handle(ctx, conv, in)
	if err != nil {
		slog.Error("BotService.HandleMessage: intake failed", "chat_id", chatID, "input", in.Kind, "error", err)
		s.send(chatID, s.Localizer.GetString(lang, "complaint_failed"), tgbotapi.NewRemoveKeyboard(true))
		return
	}
	s.render(chatID, lang, in, reply)
}

// classify turns a message into an intake input. Commands that need no
// dialogue state are answered directly and reported as handled.
func (s *BotService) classify(msg *tgbotapi.Message, lang string) (intake.Input, bool) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			s.send(msg.Chat.ID, s.Localizer.GetString(lang, "welcome"), nil)
			return intake.Input{}, true
		case "complain":
			return intake.Input{Kind: intake.InputSubmit}, false
		case "cancel":
			return intake.Input{Kind: intake.InputCancel}, false
		case "skip":
			return intake.Input{Kind: intake.InputSkip}, false
		default:
			s.send(msg.Chat.ID, s.Localizer.GetString(lang, "unknown_command"), nil)
			return intake.Input{}, true
		}
	}

	switch {
	case msg.Location != nil:
		return intake.Input{Kind: intake.InputLocation, Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude}, false
	case msg.Text != "":
		return intake.Input{Kind: intake.InputText, Text: msg.Text}, false
	default:
		return intake.Input{Kind: intake.InputOther}, false
	}
}

func (s *BotService) render(chatID int64, lang string, in intake.Input, reply intake.Reply) {
	text := func(key string) string { return s.Localizer.GetString(lang, key) }
	removeKeyboard := tgbotapi.NewRemoveKeyboard(true)

	switch reply.Kind {
	case intake.ReplyAskDescription:
		s.send(chatID, text("ask_description"), removeKeyboard)
	case intake.ReplyAskLocation:
		s.send(chatID, text("ask_location"), s.locationKeyboard(lang))
	case intake.ReplyRepromptLocation:
		s.send(chatID, text("reprompt_location"), s.locationKeyboard(lang))
	case intake.ReplyCancelled:
		s.send(chatID, text("complaint_cancelled"), removeKeyboard)
	case intake.ReplySubmitted:
		switch reply.Result {
		case complaint.ResultDelivered:
			s.send(chatID, text("complaint_sent"), removeKeyboard)
		case complaint.ResultDeferred:
			s.send(chatID, text("complaint_deferred"), removeKeyboard)
		default:
			s.send(chatID, text("complaint_failed"), removeKeyboard)
		}
	case intake.ReplyIgnored:
		if in.Kind == intake.InputText {
			s.send(chatID, text("unknown_command"), nil)
		}
	}
}

// locationKeyboard offers the location request and skip buttons.
func (s *BotService) locationKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonLocation(s.Localizer.GetString(lang, "btn_send_location")),
			tgbotapi.NewKeyboardButton(s.Localizer.GetString(lang, "btn_skip")),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func (s *BotService) send(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := s.BotAPI.Send(msg); err != nil {
		slog.Error("BotService.send: failed to send message", "chat_id", chatID, "error", err)
	}
}
