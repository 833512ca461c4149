package onebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler processes one inbound group command and returns the reply text;
// "" means no reply. Implemented by the command router.
type Handler interface {
	Process(ctx context.Context, sender int64, text string) string
}

// Gateway connects the OneBot event sources to the command router.
type Gateway struct {
	client  *Client
	handler Handler
	secret  string
}

func NewGateway(client *Client, handler Handler, secret string) *Gateway {
	return &Gateway{client: client, handler: handler, secret: secret}
}

// HandleEvent dispatches one decoded event. Non-group events and empty
// replies are dropped.
func (g *Gateway) HandleEvent(ctx context.Context, ev Event) {
	if ev.PostType != "message" || ev.MessageType != "group" {
		return
	}
	reply := g.handler.Process(ctx, ev.From(), ev.RawMessage)
	if reply == "" {
		return
	}
	if err := g.client.SendGroupMsg(ctx, ev.GroupID, reply); err != nil {
		log.Printf("[Gateway] send to group %d: %v", ev.GroupID, err)
	}
}

// HandleWebhook is the gin handler for the OneBot HTTP push endpoint. When a
// secret is configured the X-Signature header (sha1 HMAC of the body) must
// match.
func (g *Gateway) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if g.secret != "" && !g.verifySignature(body, c.GetHeader("X-Signature")) {
		c.Status(http.StatusUnauthorized)
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	g.HandleEvent(c.Request.Context(), ev)
	c.String(http.StatusOK, "ok")
}

func (g *Gateway) verifySignature(body []byte, header string) bool {
	mac := hmac.New(sha1.New, []byte(g.secret))
	mac.Write(body)
	want := "sha1=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}
