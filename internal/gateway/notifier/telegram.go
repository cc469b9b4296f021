package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"zion/internal/logger"
)

// 中文说明：
// Telegram 通知器：周期结束（成交/拒单/异常）时推送关键信息。
// 发送失败指数退避重试，最终失败只向调用方返回错误，不做其他副作用。

const telegramAPIBase = "https://api.telegram.org"

type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	retries int
	baseURL string
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 15 * time.Second},
		retries:  3,
		baseURL:  telegramAPIBase,
	}
}

// SendText 发送 Markdown 文本消息。
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram: bot token and chat id are required")
	}
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.BotToken)
	var lastErr error
	for attempt := 1; attempt <= t.retries; attempt++ {
		lastErr = t.post(url, body)
		if lastErr == nil {
			return nil
		}
		logger.Warnf("telegram: send attempt %d/%d failed: %v", attempt, t.retries, lastErr)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return lastErr
}

func (t *Telegram) post(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram: status=%d", resp.StatusCode)
	}
	return nil
}
