// Command chat-cli is a terminal chat widget for the live chat backend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"kaleem-livechat/pkg/livechat"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

func main() {
	home, _ := os.UserHomeDir()

	baseURL := flag.String("url", envOr("KALEEM_CHAT_URL", "http://localhost:3000/api"), "chat API base URL")
	storagePath := flag.String("storage", filepath.Join(home, ".kaleem", "chat.json"), "file the session id is kept in")
	pollInterval := flag.Duration("poll", livechat.DefaultPollInterval, "polling interval when realtime is unavailable")
	noRealtime := flag.Bool("no-realtime", false, "disable the websocket channel and poll only")
	debug := flag.Bool("debug", false, "log transport details to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	out := &renderer{}
	conv, err := livechat.NewConversation(livechat.Options{
		BaseURL:         *baseURL,
		DisableRealtime: *noRealtime,
		Storage:         livechat.NewFileStorage(*storagePath),
		PollInterval:    *pollInterval,
		Logger:          logger,
		OnChange:        out.render,
		OnTyping:        func() { color.New(color.Faint).Println("  bot is typing…") },
		OnStateChange: func(state livechat.ConnectionState) {
			if *debug {
				color.Yellow("  [%s]", state)
			}
		},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	color.Cyan("Kaleem live chat (session %s)", conv.SessionID())
	color.New(color.Faint).Println("Type a message, /rate <n> up|down, /history, /quit")

	out.render(conv.Transcript())
	if err := conv.Start(ctx); err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer conv.Close()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, conv, out, strings.TrimSpace(line)); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, conv *livechat.Conversation, out *renderer, line string) bool {
	switch {
	case line == "":
		return false
	case line == "/quit" || line == "/exit":
		return true
	case line == "/history":
		out.reset()
		out.render(conv.Transcript())
		return false
	case strings.HasPrefix(line, "/rate"):
		idx, value, err := parseRate(line)
		if err != nil {
			color.Red("%v", err)
			return false
		}
		reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := conv.Rate(reqCtx, idx, value); err != nil {
			color.Red("Rating failed: %v", err)
		}
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	// Failures are already shown as an apology entry in the transcript.
	_ = conv.Send(reqCtx, line)
	return false
}

func parseRate(line string) (int, livechat.Rating, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("usage: /rate <n> up|down")
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil || idx < 0 {
		return 0, 0, fmt.Errorf("invalid message number %q", fields[1])
	}
	switch strings.ToLower(fields[2]) {
	case "up", "+", "1":
		return idx, livechat.RatingUp, nil
	case "down", "-", "0":
		return idx, livechat.RatingDown, nil
	}
	return 0, 0, fmt.Errorf("rating must be up or down")
}

// renderer prints transcript changes. When a change only appends entries it
// prints the new ones; otherwise it reprints the whole transcript.
type renderer struct {
	mu      sync.Mutex
	printed []string
}

func (r *renderer) reset() {
	r.mu.Lock()
	r.printed = nil
	r.mu.Unlock()
}

func (r *renderer) render(transcript []livechat.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, len(transcript))
	for i, e := range transcript {
		keys[i] = string(e.Sender) + "\x00" + e.Text
	}

	start := len(r.printed)
	if !isPrefix(r.printed, keys) {
		if len(r.printed) > 0 {
			color.New(color.Faint).Println("  ── transcript updated ──")
		}
		start = 0
	}
	for _, e := range transcript[start:] {
		printEntry(e)
	}
	r.printed = keys
}

func isPrefix(prefix, keys []string) bool {
	if len(prefix) > len(keys) {
		return false
	}
	for i := range prefix {
		if prefix[i] != keys[i] {
			return false
		}
	}
	return true
}

func printEntry(e livechat.Entry) {
	if e.Sender == livechat.SenderUser {
		color.Green("you: %s", e.Text)
		return
	}
	if e.RatingIndex != nil {
		color.Cyan("bot [%d]: %s", *e.RatingIndex, e.Text)
		return
	}
	color.Cyan("bot: %s", e.Text)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
