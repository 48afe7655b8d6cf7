package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"poker-club-bot/internal/game/dice"
	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/service"
)

// GameHandler handles game commands.
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// HandleDice handles the /dice command: one fixed-bet round against the bot.
func (h *GameHandler) HandleDice(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	round, err := h.gameService.PlayDice(ctx, sender.ID)
	switch {
	case errors.Is(err, service.ErrNotRegistered):
		return c.Reply(msgNotRegistered)
	case errors.Is(err, service.ErrInsufficientFunds):
		return c.Reply(fmt.Sprintf("❌ Недостаточно фишек! Минимальная ставка: %d фишек", h.gameService.Bet()))
	case errors.Is(err, lock.ErrLockTimeout):
		return c.Reply(msgBusy)
	case err != nil:
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Dice round failed")
		return c.Reply(msgInternalError)
	}

	return c.Reply(formatDiceRound(round))
}

func formatDiceRound(round *service.DiceRound) string {
	var result string
	switch round.Outcome {
	case dice.Win:
		result = fmt.Sprintf("🎯 Вы выиграли %d фишек!", round.Payout)
	case dice.Tie:
		result = "🤝 Ничья! Ставка возвращена"
	default:
		result = "💥 Вы проиграли!"
	}

	return fmt.Sprintf(
		"🎲 Ваш кубик: %d\n"+
			"🤖 Кубик бота: %d\n\n"+
			"%s\n"+
			"💰 Новый баланс: %d фишек\n\n"+
			"➡️ Сыграть еще: /dice",
		round.PlayerRoll, round.HouseRoll, result, round.Balance,
	)
}
