package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManDuong25/facebook-sub000/internal/config"
	"github.com/ManDuong25/facebook-sub000/internal/identity"
	"github.com/ManDuong25/facebook-sub000/internal/wire"
	"github.com/ManDuong25/facebook-sub000/pkg/logger"
	"github.com/ManDuong25/facebook-sub000/sdk"
)

const connectTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	token, err := identity.LoadAccessToken(cfg.AccessKey)
	if err != nil {
		return fmt.Errorf("not authenticated (run the web client to sign in first): %w", err)
	}
	if identity.IsExpiringSoon(token, 0) {
		return fmt.Errorf("access token is expired; sign in again")
	}

	client, err := sdk.New(cfg, token)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	user := client.CurrentUser()
	log.Printf("Signed in as %s", user.ID)
	log.Printf("Server: %s", cfg.ServerURL)

	client.SetListener(&consoleListener{client: client})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	log.Println("Connected. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down.")
	return nil
}

// consoleListener prints chat-core events. It stands in for the UI layer the
// SDK is normally embedded in.
type consoleListener struct {
	client *sdk.Client
}

func (c *consoleListener) OnConnected() {
	log.Println("connection up")
}

func (c *consoleListener) OnDisconnected(reason string) {
	log.Printf("connection lost: %s (messages stay pending until reconnect)", reason)
}

func (c *consoleListener) OnWindowsChanged(open []sdk.Conversation) {
	names := make([]string, 0, len(open))
	for _, conv := range open {
		names = append(names, conv.DisplayName)
	}
	log.Printf("open windows: %v", names)
}

func (c *consoleListener) OnConversationUpdated(conversationID string) {
	msgs := c.client.Messages(conversationID)
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	log.Printf("[%s] %s: %s (%s)", conversationID, last.SenderID, last.Content, last.State)
}

func (c *consoleListener) OnNotification(n wire.Notification) {
	log.Printf("notification %s from %s", n.Kind, n.ActorID)
}

func (c *consoleListener) OnFriendshipEvent(ev wire.FriendshipEvent) {
	log.Printf("friend request %s is now %s", ev.RequestID, ev.Status)
}

func (c *consoleListener) OnError(message string) {
	log.Printf("error: %s", message)
}

func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sub000", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	server := fs.String("server", "", "Server base URL")
	maxWindows := fs.Int("max-windows", 0, "Maximum simultaneously open chat windows")
	logLevel := fs.String("log-level", "", "Log level (trace|debug|info|warn|error)")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *server != "" {
		cfg.ServerURL = *server
	}
	if *maxWindows > 0 {
		cfg.MaxWindows = *maxWindows
	}
	if *logLevel != "" {
		level, err := logger.ParseLevel(*logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	return nil
}

func printUsage() {
	fmt.Println(`sub000 - realtime chat client

Usage:
  sub000 [flags]

Environment Variables:
  SUB_SERVER_URL   Server base URL (default: https://api.sub000.app)
  SUB_SOCKET_PATH  Socket.IO handshake path (default: /v1/ws)
  SUB_HOME_DIR     Local state directory (default: ~/.sub000)
  SUB_ACCESS_KEY   Access token file (default: $SUB_HOME_DIR/access.key)
  SUB_MAX_WINDOWS  Maximum open chat windows (default: 4)
  SUB_PAGE_SIZE    History page size (default: 20)
  SUB_LOG_LEVEL    Log level (trace|debug|info|warn|error)
  SUB_DEBUG        Enable debug logging (true/1)

Flags:
  --server       Server base URL
  --max-windows  Maximum simultaneously open chat windows
  --log-level    Log level
  --help         Show this help message`)
}
