package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	reader := flag.Int("reader", 42, "reader identity")
	sender := flag.Int("sender", 1500, "sender identity")
	text := flag.String("text", "hello from smoke test", "payload to relay")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dial := func() (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, *addr, nil)
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		return conn, nil
	}

	rc, err := dial()
	if err != nil {
		return err
	}
	defer rc.Close(websocket.StatusNormalClosure, "bye")

	sc, err := dial()
	if err != nil {
		return err
	}
	defer sc.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, rc, proto.Envelope{Type: proto.TypeNameJoin, Origin: int32(*reader)}); err != nil {
		return fmt.Errorf("reader join: %w", err)
	}
	if err := wsjson.Write(ctx, sc, proto.Envelope{Type: proto.TypeNameJoin, Origin: int32(*sender)}); err != nil {
		return fmt.Errorf("sender join: %w", err)
	}

	// Joins from different connections are not ordered against each other.
	time.Sleep(200 * time.Millisecond)

	if err := wsjson.Write(ctx, sc, proto.Envelope{
		Type:        proto.TypeNameData,
		Origin:      int32(*sender),
		Destination: int32(*reader),
		Payload:     []byte(*text),
	}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var got proto.Envelope
	if err := wsjson.Read(ctx, rc, &got); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	fmt.Printf("Received type=%s origin=%d destination=%d payload=%q\n", got.Type, got.Origin, got.Destination, got.Payload)
	return nil
}
