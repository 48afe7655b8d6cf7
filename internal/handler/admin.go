package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/service"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// HandleAddChips handles the /add_chips command.
// Format: /add_chips @username amount
func (h *AdminHandler) HandleAddChips(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var payload string
	if msg := c.Message(); msg != nil {
		payload = msg.Payload
	}

	user, grant, err := h.adminService.GrantChips(ctx, sender.ID, payload)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return c.Reply("⛔ Доступ запрещён!")
	case errors.Is(err, service.ErrBadArguments):
		return c.Reply("ℹ️ Использование: /add_chips @username количество")
	case errors.Is(err, service.ErrTargetNotFound):
		return c.Reply(fmt.Sprintf("❌ Игрок @%s не найден", grant.Username))
	case errors.Is(err, service.ErrNegativeBalance):
		return c.Reply(fmt.Sprintf("❌ Баланс игрока @%s не может стать отрицательным", grant.Username))
	case errors.Is(err, lock.ErrLockTimeout):
		return c.Reply(msgBusy)
	case err != nil:
		log.Error().Err(err).Int64("admin_id", sender.ID).Msg("Admin grant failed")
		return c.Reply(msgInternalError)
	}

	return c.Reply(fmt.Sprintf(
		"✅ Добавлено %d фишек игроку %s\n"+
			"💰 Новый баланс: %d фишек",
		grant.Amount, user.DisplayName(), user.Chips,
	))
}
