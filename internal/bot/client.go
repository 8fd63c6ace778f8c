package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Client is a minimal Telegram Bot API client: long-poll for updates and
// reply to chats.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
	}
}

// GetUpdates blocks for up to timeout waiting for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	q.Set("allowed_updates", `["message"]`)

	// The server holds the request open for the poll timeout.
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.method("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := c.do(req, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	return updates, nil
}

// SendMessage posts an HTML formatted reply to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, text string) error {
	body := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if replyTo != 0 {
		body["reply_to_message_id"] = replyTo
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.method("sendMessage"), bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var sent Message
	if err := c.do(req, &sent); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

func (c *Client) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, name)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiResponse[json.RawMessage]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(data))
	}
	if !envelope.OK {
		return fmt.Errorf("API error %d: %s", envelope.ErrorCode, envelope.Description)
	}
	return json.Unmarshal(envelope.Result, result)
}
