package telegram

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

// Settings Telegram机器人配置
type Settings struct {
	Token  string
	ChatID string
	Client *http.Client
}

// Notifier 交易通知机器人，成交后向配置的会话推送消息
type Notifier struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
}

// NewNotifier 创建通知机器人
func NewNotifier(logger *zap.Logger, settings Settings) (*Notifier, error) {
	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    poller,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "启动机器人"},
		{Text: "/help", Description: "获取帮助信息"},
	})
	if err != nil {
		return nil, err
	}

	return &Notifier{
		logger:   logger,
		settings: settings,
		client:   client,
	}, nil
}

// Start 启动长轮询
func (r *Notifier) Start() {
	go r.client.Start()
}

// Notify 向配置的会话推送一条消息
func (r *Notifier) Notify(msg string) error {
	chatID := cast.ToInt64(r.settings.ChatID)
	_, err := r.client.Send(tele.ChatID(chatID), escapeMarkdown(msg), &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
