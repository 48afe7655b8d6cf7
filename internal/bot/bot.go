// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"poker-club-bot/internal/config"
	"poker-club-bot/internal/handler"
	"poker-club-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	GameService    *service.GameService
	AdminService   *service.AdminService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := deps.Config.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	pref := tele.Settings{
		Token:   deps.Config.Bot.Token,
		Poller:  &tele.LongPoller{Timeout: timeout},
		OnError: onError,
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accountHandler: handler.NewAccountHandler(deps.AccountService, deps.GameService.Bet()),
		gameHandler:    handler.NewGameHandler(deps.GameService),
		adminHandler:   handler.NewAdminHandler(deps.AdminService),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	for _, cmd := range Commands() {
		b.bot.Handle("/"+cmd.Text, b.handlerFor(cmd.Text))
	}
}

func (b *Bot) handlerFor(command string) tele.HandlerFunc {
	switch command {
	case "start":
		return b.accountHandler.HandleStart
	case "balance":
		return b.accountHandler.HandleBalance
	case "dice":
		return b.gameHandler.HandleDice
	case "add_chips":
		return b.adminHandler.HandleAddChips
	default:
		return b.accountHandler.HandleHelp
	}
}

// Commands returns the command menu shown by Telegram clients.
func Commands() []tele.Command {
	return []tele.Command{
		{Text: "start", Description: "Регистрация и стартовый баланс"},
		{Text: "dice", Description: "Играть в кости"},
		{Text: "balance", Description: "Проверить баланс"},
		{Text: "help", Description: "Справка по командам"},
		{Text: "add_chips", Description: "Добавить фишки игроку (админ)"},
	}
}

// Start publishes the command menu and starts polling. It blocks until Stop.
func (b *Bot) Start() {
	if err := b.bot.SetCommands(Commands()); err != nil {
		log.Warn().Err(err).Msg("Failed to publish command menu")
	}

	log.Info().Str("bot", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

func onError(err error, c tele.Context) {
	ev := log.Error().Err(err)
	if c != nil {
		if sender := c.Sender(); sender != nil {
			ev = ev.Int64("user_id", sender.ID)
		}
	}
	ev.Msg("Telegram handler error")
}
