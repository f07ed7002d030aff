package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"modelchat/internal/config"
	"modelchat/internal/usecase/chat"
)

const chunkSize = 2048

type Bot struct {
	api  *tgbotapi.BotAPI
	cfg  config.Config
	chat *chat.Service

	mu    sync.Mutex
	model string
}

func NewBot(cfg config.Config, chatSvc *chat.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:   api,
		cfg:   cfg,
		chat:  chatSvc,
		model: chatSvc.DefaultModel(),
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	slog.Info("telegram bot started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			msg := update.Message
			if msg.From == nil {
				continue
			}
			go b.handleMessage(ctx, msg)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !isAllowedUser(msg.From.ID, b.cfg) {
		deny := tgbotapi.NewMessage(msg.Chat.ID, "access denied")
		deny.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(deny); err != nil {
			slog.Warn("failed to send deny message", "error", err)
		}
		return
	}

	if msg.IsCommand() {
		b.sendText(msg.Chat.ID, msg.MessageID, b.handleCommand(msg.Command(), msg.CommandArguments()))
		return
	}

	b.sendChatAction(msg.Chat.ID)

	res, err := b.chat.Submit(ctx, msg.Text, b.currentModel())
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			b.sendText(msg.Chat.ID, msg.MessageID, "i need some text to work with")
		case errors.Is(err, chat.ErrBusy):
			b.sendText(msg.Chat.ID, msg.MessageID, "still answering the previous message, hold on")
		case errors.Is(err, chat.ErrUnknownModel):
			b.sendText(msg.Chat.ID, msg.MessageID, "the selected model is gone, pick another with /models")
		default:
			slog.Error("chat submission failed", "error", err)
			b.sendText(msg.Chat.ID, msg.MessageID, "something went wrong, try again later")
		}
		return
	}

	resp := res.Assistant.Content
	if shouldSendAsFile(resp) {
		if err := b.sendAsFile(msg.Chat.ID, msg.MessageID, resp); err != nil {
			slog.Warn("failed to send file", "error", err)
			b.sendText(msg.Chat.ID, msg.MessageID, "could not send file, here is the text")
			b.sendText(msg.Chat.ID, msg.MessageID, resp)
		}
		return
	}

	b.sendText(msg.Chat.ID, msg.MessageID, resp)
}

func (b *Bot) handleCommand(cmd, args string) string {
	switch cmd {
	case "models":
		return formatModels(b.chat.Models(), b.currentModel())
	case "model":
		id := strings.TrimSpace(args)
		if id == "" {
			return "current model: " + b.currentModel()
		}
		if !b.chat.HasModel(id) {
			return fmt.Sprintf("unknown model %q, see /models", id)
		}
		b.mu.Lock()
		b.model = id
		b.mu.Unlock()
		return "model set to " + id
	case "status":
		return formatStatus(b.chat.Status())
	default:
		return "send any text to chat.\n/models lists models\n/model <id> picks one\n/status shows the gateway state"
	}
}

func (b *Bot) currentModel() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

func (b *Bot) sendText(chatID int64, replyTo int, text string) {
	chunks := splitText(text, chunkSize)
	for idx, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if idx == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			slog.Warn("failed to send reply", "error", err)
		}
	}
}

func (b *Bot) sendChatAction(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Debug("failed to send chat action", "error", err)
	}
}

func (b *Bot) sendAsFile(chatID int64, replyTo int, content string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "response.md",
		Bytes: []byte(content),
	})
	doc.ReplyToMessageID = replyTo

	_, err := b.api.Send(doc)
	return err
}

func shouldSendAsFile(text string) bool {
	return len([]rune(text)) > chunkSize
}

func isAllowedUser(userID int64, cfg config.Config) bool {
	for _, id := range cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}

	if len(cfg.AllowedUserIDs) == 0 {
		return true
	}

	for _, id := range cfg.AllowedUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func formatModels(models []config.Model, current string) string {
	var sb strings.Builder
	sb.WriteString("available models:")
	for _, m := range models {
		marker := " "
		if m.ID == current {
			marker = "*"
		}
		fmt.Fprintf(&sb, "\n%s %s (%s)", marker, m.ID, m.Name)
	}
	return sb.String()
}

func formatStatus(st chat.Status) string {
	line := fmt.Sprintf("gateway: %s", st.Gateway.State)
	if st.Gateway.Reason != "" {
		line += " (" + st.Gateway.Reason + ")"
	}
	if st.LastError != "" {
		line += "\nlast error: " + st.LastError
	}
	return line
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
