package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/messenger-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	sender := flag.String("sender", "tester", "sender name")
	room := flag.String("room", "general", "chat id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeJoin, *room); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSend, proto.SendMessageData{ChatID: *room, Sender: *sender, Text: *text}); err != nil {
		return err
	}

	var got proto.EventMessage
	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if frame.Error != nil {
			return fmt.Errorf("server error %s: %s", frame.Error.Code, frame.Error.Msg)
		}
		if frame.Event != proto.EventNewMessage {
			continue
		}
		if err := json.Unmarshal(frame.Data, &got); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if got.Text == *text && got.Sender == *sender {
			break
		}
	}
	log.Printf("relayed message %s at %s", got.ID, got.Time)

	history, err := fetchHistory(ctx, *addr, *room)
	if err != nil {
		return err
	}
	for _, msg := range history {
		if msg.ID == got.ID {
			log.Printf("history for %s has %d messages, smoke test passed", *room, len(history))
			return nil
		}
	}
	return fmt.Errorf("message %s missing from history", got.ID)
}

func fetchHistory(ctx context.Context, wsAddr, room string) ([]proto.EventMessage, error) {
	u, err := url.Parse(wsAddr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "ws", "http", 1)
	u.Path = "/messages/" + url.PathEscape(room)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get history: status %d", resp.StatusCode)
	}
	var msgs []proto.EventMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return msgs, nil
}
