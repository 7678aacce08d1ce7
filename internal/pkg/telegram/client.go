package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/FelipeCastroBR/TeleGate/internal/pkg/env"
)

// API is the narrow Telegram surface the provisioning pipeline consumes.
// Tests inject fakes; production uses the Bot API client below.
type API interface {
	// CreateMemberInviteLink requests a single-use invite link named after the
	// member so a join event can be correlated back to them. expiresAt bounds
	// the link to the member's access expiry when set.
	CreateMemberInviteLink(memberID uint, expiresAt *time.Time) (string, error)
	// CreateGenericInviteLink returns the group's reusable invite link, the
	// degraded-but-functional fallback.
	CreateGenericInviteLink() (string, error)
	// SendMessage delivers a direct message to a Telegram user.
	SendMessage(userID int64, text string) error
}

// Client talks to the Telegram Bot API for one managed group.
type Client struct {
	bot     *tgbotapi.BotAPI
	groupID int64
}

// NewClientFromEnv builds a client from TELEGRAM_BOT_TOKEN and
// TELEGRAM_GROUP_ID. The HTTP client carries an explicit timeout so a hung
// Telegram call cannot stall the sequential sweep.
func NewClientFromEnv() (*Client, error) {
	token := env.GetEnv("TELEGRAM_BOT_TOKEN", "")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	groupID, err := strconv.ParseInt(env.GetEnv("TELEGRAM_GROUP_ID", ""), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_GROUP_ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return &Client{bot: bot, groupID: groupID}, nil
}

// CreateMemberInviteLink creates a one-time invite link for the group,
// named after the member and optionally bounded to their access expiry.
func (c *Client) CreateMemberInviteLink(memberID uint, expiresAt *time.Time) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: c.groupID},
		Name:        fmt.Sprintf("member-%d", memberID),
		MemberLimit: 1,
	}
	if expiresAt != nil {
		cfg.ExpireDate = int(expiresAt.Unix())
	}

	resp, err := c.bot.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("createChatInviteLink decode: %w", err)
	}
	if link.InviteLink == "" {
		return "", fmt.Errorf("createChatInviteLink returned empty link")
	}
	return link.InviteLink, nil
}

// CreateGenericInviteLink exports the group's primary reusable invite link.
func (c *Client) CreateGenericInviteLink() (string, error) {
	link, err := c.bot.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: c.groupID},
	})
	if err != nil {
		return "", fmt.Errorf("exportChatInviteLink: %w", err)
	}
	if link == "" {
		return "", fmt.Errorf("exportChatInviteLink returned empty link")
	}
	return link, nil
}

// SendMessage sends a plain-text direct message to a Telegram user.
func (c *Client) SendMessage(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}
