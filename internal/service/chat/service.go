// Package chat is the conversation orchestrator: for every inbound
// message it consults the match state machine, maintains the dialogue
// log, builds the system prompt, and asks the generation gateway for a
// reply. Commands short-circuit the generative flow.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/genai"
	"github.com/oggyb/amica/internal/prompt"
	"github.com/oggyb/amica/internal/repository"
	"github.com/oggyb/amica/internal/service/match"
	"github.com/oggyb/amica/internal/service/payment"
)

// historyLimit bounds the dialogue window handed to the backend. The
// window is the assistant's entire memory; there is no summarization.
const historyLimit = 12

// Generator produces replies and never fails outward.
type Generator interface {
	GenerateReply(ctx context.Context, systemPrompt string, history []genai.Message) string
}

// Sender delivers outbound messages to the chat platform.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Inbound is one unit of work handed over by the transport layer.
type Inbound struct {
	UserID  string
	Text    string
	Private bool
}

// Service orchestrates the per-message flow.
type Service struct {
	appCtx    *app.AppContext
	dialogues *repository.DialogueRepository
	profiles  *repository.ProfileRepository
	matches   *match.Service
	payments  *payment.Service
	generator Generator
	sender    Sender
	prompts   *prompt.Builder
	priceRUB  int
}

// NewService creates the orchestrator with dependencies from AppContext.
func NewService(
	appCtx *app.AppContext,
	matches *match.Service,
	payments *payment.Service,
	generator Generator,
	sender Sender,
	prompts *prompt.Builder,
	priceRUB int,
) *Service {
	return &Service{
		appCtx:    appCtx,
		dialogues: repository.NewDialogueRepository(appCtx.DB),
		profiles:  repository.NewProfileRepository(appCtx.DB),
		matches:   matches,
		payments:  payments,
		generator: generator,
		sender:    sender,
		prompts:   prompts,
		priceRUB:  priceRUB,
	}
}

// HandleMessage processes one inbound private message end to end.
//
// Persistence failures surface as hard errors: silently dropping history
// would corrupt future context. Generation failures cannot happen by the
// gateway's contract; send failures abort before the assistant turn is
// logged so the stored dialogue never claims an undelivered reply.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) error {
	if !in.Private || strings.TrimSpace(in.Text) == "" {
		return nil
	}
	if strings.HasPrefix(in.Text, "/") {
		return s.handleCommand(ctx, in)
	}

	latest, err := s.matches.LatestForUser(ctx, in.UserID)
	if err != nil {
		return fmt.Errorf("resolve latest match: %w", err)
	}

	// Payment nudge for the male party of a mutual-unpaid match. A side
	// hint, not an access denial: the assistant still answers below.
	if latest != nil && latest.MaleID == in.UserID && latest.Phase() == db.PhaseMutualUnpaid {
		if err := s.sender.SendMessage(ctx, in.UserID, s.payHint(latest)); err != nil {
			s.appCtx.Logger.Warn("failed to send payment nudge", "user_id", in.UserID, "err", err)
		}
	}

	if err := s.dialogues.Append(ctx, in.UserID, db.RoleUser, in.Text); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}

	profile, err := s.profiles.Get(ctx, in.UserID)
	if err != nil {
		profile = nil // prompt section is simply omitted
	}
	systemPrompt := s.prompts.Build(profile, latest)

	recent, err := s.dialogues.Recent(ctx, in.UserID, historyLimit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	history := make([]genai.Message, 0, len(recent))
	for _, msg := range recent {
		history = append(history, genai.Message{Role: string(msg.Role), Content: msg.Content})
	}

	reply := s.generator.GenerateReply(ctx, systemPrompt, history)

	if err := s.sender.SendMessage(ctx, in.UserID, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	if err := s.dialogues.Append(ctx, in.UserID, db.RoleAssistant, reply); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	return nil
}

// handleCommand answers the bot commands. Commands never reach the
// generation backend.
func (s *Service) handleCommand(ctx context.Context, in Inbound) error {
	cmd := strings.Fields(in.Text)[0]

	switch cmd {
	case "/start":
		return s.send(ctx, in.UserID,
			"Привет! Я помогу начать диалог и поддерживать общение. Напиши первое сообщение.")

	case "/help":
		return s.send(ctx, in.UserID,
			"Команды:\n"+
				"/start — начать\n"+
				"/match — статус моего матча\n"+
				"/my_matches — мои взаимные совпадения\n"+
				"/pay — получить ссылку на оплату (для мужчин при взаимной симпатии)\n"+
				"/contact — получить контакт")

	case "/match":
		latest, err := s.matches.LatestForUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		if latest == nil {
			return s.send(ctx, in.UserID, "Активных совпадений пока нет.")
		}
		return s.send(ctx, in.UserID, "Статус: "+prompt.MatchContext(latest))

	case "/my_matches":
		rows, err := s.matches.ListForUser(ctx, in.UserID, true)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return s.send(ctx, in.UserID, "Взаимных совпадений пока нет.")
		}
		lines := []string{"Ваши взаимные совпадения:"}
		for i := range rows {
			if i == 10 {
				break
			}
			lines = append(lines, prompt.MatchContext(&rows[i]))
		}
		return s.send(ctx, in.UserID, strings.Join(lines, "\n"))

	case "/pay":
		return s.handlePay(ctx, in.UserID)

	case "/contact":
		return s.handleContact(ctx, in.UserID)

	default:
		return s.send(ctx, in.UserID, "Неизвестная команда. Наберите /help для списка команд.")
	}
}

// handlePay resolves or creates the invoice for the male party of a
// mutual match.
func (s *Service) handlePay(ctx context.Context, userID string) error {
	latest, err := s.matches.LatestForUser(ctx, userID)
	if err != nil {
		return err
	}
	if latest == nil || latest.MaleID != userID || !latest.Mutual {
		return s.send(ctx, userID, "Пока нет активной взаимной симпатии, оплата не требуется.")
	}
	if latest.Paid {
		return s.send(ctx, userID, "Оплата уже подтверждена. Можете общаться свободно.")
	}
	if latest.InvoiceURL != "" {
		return s.send(ctx, userID, "Ссылка на оплату: "+latest.InvoiceURL)
	}

	url, err := s.payments.CreateInvoice(ctx, latest.ID)
	if err != nil {
		s.appCtx.Logger.Error("invoice creation from /pay failed", "match_id", latest.ID, "err", err)
		return s.send(ctx, userID, "Ссылка на оплату скоро будет доступна. Обратитесь к поддержке.")
	}
	return s.send(ctx, userID, "Ссылка на оплату: "+url)
}

// handleContact applies the disclosure decision to the user's latest match.
func (s *Service) handleContact(ctx context.Context, userID string) error {
	latest, err := s.matches.LatestForUser(ctx, userID)
	if err != nil {
		return err
	}

	decision := match.DecideContact(latest, userID)
	switch {
	case decision.Disclose && decision.Handle != "":
		return s.send(ctx, userID, "Аккаунт собеседника: @"+decision.Handle)
	case decision.Disclose:
		return s.send(ctx, userID, "Аккаунт собеседника пока недоступен. Попробуйте позже.")
	case decision.NeedsPayment:
		return s.send(ctx, userID, s.payHint(latest))
	default:
		return s.send(ctx, userID, "Пока нет взаимной симпатии, контакт недоступен.")
	}
}

// payHint renders the payment prompt, with the invoice link when one exists.
func (s *Service) payHint(m *db.Match) string {
	hint := fmt.Sprintf("Для доступа к странице собеседницы требуется оплата %d₽.", s.priceRUB)
	if m.InvoiceURL != "" {
		return hint + " Ссылка на оплату: " + m.InvoiceURL
	}
	return hint + " Запросите ссылку командой /pay"
}

func (s *Service) send(ctx context.Context, userID, text string) error {
	return s.sender.SendMessage(ctx, userID, text)
}
