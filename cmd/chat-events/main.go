// Command chat-events tails the chat event stream on NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"kaleem-livechat/pkg/events"
	chatnats "kaleem-livechat/pkg/nats"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("nats", os.Getenv("NATS_URL"), "NATS server URL")
	subject := flag.String("subject", chatnats.SubjectPrefix+".>", "subject filter")
	durable := flag.String("durable", "", "durable consumer name (empty for ephemeral)")
	flag.Parse()

	if *url == "" {
		log.Fatal("NATS URL is required (-nats or NATS_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := chatnats.NewSubscriber(*url)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer sub.Close()

	if err := sub.Subscribe(ctx, *subject, *durable, printEvent); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("Listening on %s, Ctrl+C to stop", *subject)
	<-ctx.Done()
}

func printEvent(_ context.Context, event events.Event) error {
	stamp := event.Timestamp().Format("15:04:05")
	line := fmt.Sprintf("%s %-22s %s", stamp, event.EventType(), formatData(event.Payload()))

	switch event.EventType() {
	case events.ChatMessageCreated:
		color.Green("%s", line)
	case events.ChatMessageRated:
		if rating, ok := event.Payload()["rating"].(float64); ok && rating == 0 {
			color.Red("%s", line)
			return nil
		}
		color.Yellow("%s", line)
	default:
		fmt.Println(line)
	}
	return nil
}

func formatData(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}
