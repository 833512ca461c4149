// Package onebot is the chat transport: a client for the OneBot v11 HTTP
// API plus two inbound paths, an HTTP webhook and a forward-websocket
// event stream. The gateway hands group messages to the command router and
// delivers its replies back to the group.
package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) call(ctx context.Context, action string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if apiResp.Status == "failed" {
		return nil, fmt.Errorf("onebot: action %s failed with retcode %d", action, apiResp.RetCode)
	}
	return apiResp.Data, nil
}

// SendGroupMsg delivers one plain-text message to a group.
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, text string) error {
	_, err := c.call(ctx, "send_group_msg", sendGroupMsgRequest{GroupID: groupID, Message: text})
	return err
}
