package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/moviebox/ragchat/internal/chat"
	"github.com/moviebox/ragchat/internal/chatclient"
	"github.com/moviebox/ragchat/internal/config"
	inats "github.com/moviebox/ragchat/internal/nats"
)

const clearScreen = "\033[H\033[2J"

var (
	serverURL string
	width     int
	natsURL   string
	durable   string
)

var rootCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Chat with a ragchat server from the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var eventsCmd = &cobra.Command{
	Use:          "events",
	Short:        "Print chat events published by the server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tailEvents(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "base URL of the ragchat server")
	rootCmd.Flags().IntVar(&width, "width", 80, "terminal width in columns")

	eventsCmd.Flags().StringVar(&natsURL, "nats-url", "nats://localhost:4222", "NATS server URL")
	eventsCmd.Flags().StringVar(&durable, "durable", "", "durable consumer name; empty follows new events only")
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	hc := &http.Client{}
	base := strings.TrimRight(serverURL, "/")

	var opts []chatclient.Option
	opts = append(opts, chatclient.WithHTTPClient(hc))
	if info, err := chatclient.FetchProfile(ctx, hc, base); err == nil {
		opts = append(opts, chatclient.WithGreeting(info.Greeting))
	} else {
		fmt.Fprintln(out, color.YellowString("could not load profile, using default greeting: %v", err))
	}

	redraw := func(msgs []chat.Message) {
		fmt.Fprint(out, clearScreen)
		chatclient.Render(out, msgs, width)
	}
	opts = append(opts, chatclient.OnUpdate(redraw))

	client := chatclient.New(base+"/api/chat", opts...)
	redraw(client.Messages())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		client.SetDraft(scanner.Text())
		err := client.Submit(ctx)
		switch {
		case err == nil:
		case errors.Is(err, chatclient.ErrEmptyDraft):
		case ctx.Err() != nil:
			return nil
		default:
			fmt.Fprintln(out, color.RedString("error: %v", err))
		}
	}
}

func tailEvents(ctx context.Context, out io.Writer) error {
	client, err := inats.NewClient(ctx, config.NATSConfig{URL: natsURL})
	if err != nil {
		return err
	}
	defer client.Close()

	consumer, err := inats.NewConsumerManager(client.JetStream()).EnsureConsumer(ctx, durable, inats.SubjectEventsAll)
	if err != nil {
		return err
	}

	for ctx.Err() == nil {
		batch, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetching events: %w", err)
		}
		for msg := range batch.Messages() {
			var event inats.ChatEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				fmt.Fprintln(out, color.RedString("undecodable event on %s: %v", msg.Subject(), err))
			} else {
				printEvent(out, event)
			}
			_ = msg.Ack()
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, nats.ErrTimeout) {
			fmt.Fprintln(out, color.YellowString("batch: %v", err))
		}
	}
	return nil
}

func printEvent(out io.Writer, e inats.ChatEvent) {
	status := color.GreenString("%s", e.Status)
	if e.Status == inats.StatusFailed {
		status = color.RedString("%s", e.Status)
	}
	line := fmt.Sprintf("%s %s profile=%s messages=%d duration=%dms",
		e.Timestamp.Local().Format(time.TimeOnly), status, e.Profile, e.MessageCount, e.DurationMs)
	if len(e.SourceIDs) > 0 {
		line += " sources=" + strings.Join(e.SourceIDs, ",")
	}
	if e.Error != "" {
		line += " error=" + e.Error
	}
	fmt.Fprintln(out, line)
}
