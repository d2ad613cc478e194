package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/transport/tcp"
)

func main() {
	if err := run(); err != nil {
		log.Printf("relay_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:5000", "relay TCP address")
	id := flag.Int("id", 1, "identity to join with (1-999 reader, 1000-1998 sender)")
	to := flag.Int("to", 0, "destination reader for sent lines, 0 broadcasts")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, err := tcp.Dial(ctx, *addr, tcp.Options{WriteTimeout: 5 * time.Second})
	if err != nil {
		return err
	}
	defer conn.Close()

	self := core.Identity(*id)
	if err := conn.Send(core.Message{Type: core.TypeJoin, Origin: self}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	role := core.Classify(self)
	fmt.Printf("Connected to %s as %s %d\n", *addr, role, self)

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	if role == core.RoleSender {
		fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")
		writeLoop(ctx, conn, self, core.Identity(*to))
	} else {
		<-ctx.Done()
	}

	_ = conn.Send(core.Message{Type: core.TypeLeave, Origin: self})
	return nil
}

func readLoop(ctx context.Context, conn *tcp.Conn) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		fmt.Printf("[%d -> %d] %s\n", msg.Origin, msg.Destination, msg.Payload)
	}
}

func writeLoop(ctx context.Context, conn *tcp.Conn, self, to core.Identity) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			msg := core.Message{Type: core.TypeData, Origin: self, Destination: to, Payload: []byte(text)}
			if err := conn.Send(msg); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
