package buywatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTelegramBaseURL = "https://api.telegram.org"
	telegramHTTPTimeout    = 10 * time.Second
)

// Button is a single URL button rendered under a message.
type Button struct {
	Label string
	URL   string
}

// Message is one notification payload: HTML text, an optional image, and an
// optional single row of buttons.
type Message struct {
	Text     string
	ImageURL string
	Buttons  []Button
}

// Notifier delivers formatted notifications to the group chat. Delivery
// failures are non-fatal; callers log and swallow the returned error.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// TelegramNotifier posts messages to a Telegram group via the Bot API.
type TelegramNotifier struct {
	Token      string
	ChatID     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     Logger
}

// NewTelegramNotifier constructs a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string, logger Logger) *TelegramNotifier {
	return &TelegramNotifier{
		Token:  token,
		ChatID: chatID,
		HTTPClient: &http.Client{
			Timeout: telegramHTTPTimeout,
			Transport: &metricsTransport{
				Base:    http.DefaultTransport,
				Counter: externalResponseCounts,
			},
		},
		Logger: logger,
	}
}

type telegramSendRequest struct {
	ChatID      string               `json:"chat_id"`
	Text        string               `json:"text,omitempty"`
	Photo       string               `json:"photo,omitempty"`
	Caption     string               `json:"caption,omitempty"`
	ParseMode   string               `json:"parse_mode"`
	ReplyMarkup *telegramReplyMarkup `json:"reply_markup,omitempty"`
}

type telegramReplyMarkup struct {
	InlineKeyboard [][]telegramInlineButton `json:"inline_keyboard"`
}

type telegramInlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers the message, as a photo with caption when an image is set and
// as plain text otherwise.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	method := "sendMessage"
	payload := telegramSendRequest{
		ChatID:      n.ChatID,
		ParseMode:   "HTML",
		ReplyMarkup: buildReplyMarkup(msg.Buttons),
	}
	if msg.ImageURL != "" {
		method = "sendPhoto"
		payload.Photo = msg.ImageURL
		payload.Caption = msg.Text
	} else {
		payload.Text = msg.Text
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.baseURL(), n.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&tgResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !tgResp.OK {
		return fmt.Errorf("%s rejected (%d): %s", method, tgResp.ErrorCode, tgResp.Description)
	}

	if n.Logger != nil {
		n.Logger.Printf("%s delivered to chat %s", method, n.ChatID)
	}
	return nil
}

func buildReplyMarkup(buttons []Button) *telegramReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]telegramInlineButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, telegramInlineButton{Text: b.Label, URL: b.URL})
	}
	return &telegramReplyMarkup{InlineKeyboard: [][]telegramInlineButton{row}}
}

func (n *TelegramNotifier) baseURL() string {
	if n.BaseURL != "" {
		return n.BaseURL
	}
	return defaultTelegramBaseURL
}

func (n *TelegramNotifier) httpClient() *http.Client {
	if n.HTTPClient != nil {
		return n.HTTPClient
	}
	n.HTTPClient = &http.Client{Timeout: telegramHTTPTimeout}
	return n.HTTPClient
}
