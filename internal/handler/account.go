// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"poker-club-bot/internal/service"
)

const (
	msgNotRegistered = "⚠️ Вы не зарегистрированы. Введите /start"
	msgInternalError = "⚠️ Произошла ошибка, попробуйте позже"
	msgBusy          = "⏳ Предыдущая команда ещё выполняется, попробуйте позже"
)

// AccountHandler handles registration, balance and help commands.
type AccountHandler struct {
	accountService *service.AccountService
	bet            int64
}

// NewAccountHandler creates a new AccountHandler. bet is shown in command listings.
func NewAccountHandler(accountService *service.AccountService, bet int64) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		bet:            bet,
	}
}

// HandleStart handles the /start command.
// Creates an account with the starting balance if the user is new.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accountService.Register(ctx, sender.ID, sender.Username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to register user")
		return c.Reply(msgInternalError)
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎲 Добро пожаловать в Poker Club!\n"+
				"💰 Ваш стартовый баланс: %d фишек\n\n"+
				"🃏 Доступные команды:\n"+
				"/dice - Играть в кости (ставка %d фишек)\n"+
				"/balance - Проверить баланс\n"+
				"/help - Справка по командам",
			user.Chips, h.bet,
		))
	}

	return c.Reply(fmt.Sprintf("♠️ С возвращением! Ваш баланс: %d фишек", user.Chips))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.accountService.GetBalance(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			return c.Reply(msgNotRegistered)
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get balance")
		return c.Reply(msgInternalError)
	}

	return c.Reply(fmt.Sprintf("💰 Ваш баланс: %d фишек", balance))
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(HelpText(h.bet))
}

// HelpText lists every command.
func HelpText(bet int64) string {
	return fmt.Sprintf(
		"🃏 Команды покер-бота:\n"+
			"/start - Регистрация и стартовый баланс\n"+
			"/dice - Играть в кости (ставка %d фишек)\n"+
			"/balance - Проверить баланс\n"+
			"/help - Справка по командам\n\n"+
			"👑 Админ-команды:\n"+
			"/add_chips @username сумма - Добавить фишки игроку",
		bet,
	)
}
