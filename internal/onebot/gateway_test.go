package onebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type echoHandler struct {
	mu    sync.Mutex
	calls []string
	reply string
}

func (h *echoHandler) Process(ctx context.Context, sender int64, text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, text)
	return h.reply
}

func (h *echoHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type sentMsg struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

// fakeOneBot records send_group_msg calls made by the gateway.
func fakeOneBot(t *testing.T, sent *[]sentMsg) *Client {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send_group_msg" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var msg sentMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		*sent = append(*sent, msg)
		mu.Unlock()
		w.Write([]byte(`{"status":"ok","retcode":0}`))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", 2*time.Second)
}

func TestHandleEventRepliesToGroup(t *testing.T) {
	var sent []sentMsg
	h := &echoHandler{reply: "pong!"}
	g := NewGateway(fakeOneBot(t, &sent), h, "")

	g.HandleEvent(context.Background(), Event{
		PostType:    "message",
		MessageType: "group",
		GroupID:     42,
		Sender:      Sender{UserID: 7},
		RawMessage:  "ping",
	})

	if h.callCount() != 1 || h.calls[0] != "ping" {
		t.Fatalf("handler calls = %v", h.calls)
	}
	if len(sent) != 1 || sent[0].GroupID != 42 || sent[0].Message != "pong!" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestHandleEventFiltersNonGroup(t *testing.T) {
	var sent []sentMsg
	h := &echoHandler{reply: "pong!"}
	g := NewGateway(fakeOneBot(t, &sent), h, "")

	for _, ev := range []Event{
		{PostType: "message", MessageType: "private", UserID: 7, RawMessage: "ping"},
		{PostType: "notice", MessageType: "group", GroupID: 42},
		{PostType: "meta_event"},
	} {
		g.HandleEvent(context.Background(), ev)
	}

	if h.callCount() != 0 {
		t.Errorf("handler called %d times for non-group events", h.callCount())
	}
	if len(sent) != 0 {
		t.Errorf("sent = %+v", sent)
	}
}

func TestHandleEventDropsEmptyReply(t *testing.T) {
	var sent []sentMsg
	g := NewGateway(fakeOneBot(t, &sent), &echoHandler{reply: ""}, "")

	g.HandleEvent(context.Background(), Event{
		PostType:    "message",
		MessageType: "group",
		GroupID:     42,
		UserID:      7,
		RawMessage:  "just chatting",
	})

	if len(sent) != 0 {
		t.Errorf("sent = %+v, want none", sent)
	}
}

func TestEventFrom(t *testing.T) {
	ev := Event{UserID: 1, Sender: Sender{UserID: 2}}
	if got := ev.From(); got != 2 {
		t.Errorf("From = %d, want sender block preferred", got)
	}
	ev = Event{UserID: 1}
	if got := ev.From(); got != 1 {
		t.Errorf("From = %d, want user_id fallback", got)
	}
}

func webhookRouter(g *Gateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", g.HandleWebhook)
	return r
}

func TestHandleWebhook(t *testing.T) {
	var sent []sentMsg
	h := &echoHandler{reply: "pong!"}
	r := webhookRouter(NewGateway(fakeOneBot(t, &sent), h, ""))

	body := `{"post_type":"message","message_type":"group","group_id":42,"user_id":7,"raw_message":"ping"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(sent) != 1 || sent[0].Message != "pong!" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestHandleWebhookSignature(t *testing.T) {
	var sent []sentMsg
	h := &echoHandler{reply: "pong!"}
	r := webhookRouter(NewGateway(fakeOneBot(t, &sent), h, "s3cret"))

	body := `{"post_type":"message","message_type":"group","group_id":42,"user_id":7,"raw_message":"ping"}`

	// missing signature
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unsigned status = %d, want 401", w.Code)
	}

	// wrong signature
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("X-Signature", "sha1=deadbeef")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad signature status = %d, want 401", w.Code)
	}

	// valid signature
	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte(body))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("X-Signature", "sha1="+hex.EncodeToString(mac.Sum(nil)))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("signed status = %d, want 200", w.Code)
	}
	if h.callCount() != 1 {
		t.Errorf("handler calls = %d, want 1", h.callCount())
	}
}

func TestHandleWebhookBadJSON(t *testing.T) {
	var sent []sentMsg
	r := webhookRouter(NewGateway(fakeOneBot(t, &sent), &echoHandler{}, ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestClientSendsAccessToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"ok","retcode":0}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "token123", 2*time.Second)
	if err := c.SendGroupMsg(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("SendGroupMsg: %v", err)
	}
	if gotAuth != "Bearer token123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed","retcode":1400}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "", 2*time.Second)
	err := c.SendGroupMsg(context.Background(), 1, "hi")
	if err == nil || !strings.Contains(err.Error(), "1400") {
		t.Errorf("err = %v, want retcode surfaced", err)
	}
}
