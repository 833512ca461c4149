package onebot

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsReconnectDelay = 5 * time.Second

// WSReceiver consumes the OneBot forward-websocket event stream as an
// alternative to the HTTP webhook, reconnecting until stopped.
type WSReceiver struct {
	url         string
	accessToken string
	gateway     *Gateway

	stopCh chan struct{}
}

func NewWSReceiver(url, accessToken string, gateway *Gateway) *WSReceiver {
	return &WSReceiver{
		url:         url,
		accessToken: accessToken,
		gateway:     gateway,
		stopCh:      make(chan struct{}),
	}
}

func (w *WSReceiver) Start() {
	go w.loop()
	log.Printf("[WSReceiver] started for %s", w.url)
}

func (w *WSReceiver) Stop() {
	close(w.stopCh)
}

func (w *WSReceiver) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if err := w.readEvents(); err != nil {
			log.Printf("[WSReceiver] connection lost: %v", err)
		}

		select {
		case <-w.stopCh:
			return
		case <-time.After(wsReconnectDelay):
		}
	}
}

func (w *WSReceiver) readEvents() error {
	header := http.Header{}
	if w.accessToken != "" {
		header.Set("Authorization", "Bearer "+w.accessToken)
	}
	conn, _, err := websocket.DefaultDialer.Dial(w.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-w.stopCh:
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[WSReceiver] bad event: %v", err)
			continue
		}
		w.gateway.HandleEvent(context.Background(), ev)
	}
}
