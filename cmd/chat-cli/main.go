// chat-cli joins a chat room and bridges it to the terminal: incoming
// messages print to stdout, stdin lines are sent to the room, and
// "/w <user> <text>" sends a whisper.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lumastream/chat-client/internal/auth"
	"github.com/lumastream/chat-client/internal/config"
	"github.com/lumastream/chat-client/internal/discovery"
	"github.com/lumastream/chat-client/internal/domain"
	"github.com/lumastream/chat-client/internal/session"
	"github.com/lumastream/chat-client/internal/transport"
	"github.com/lumastream/chat-client/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "chat-cli"})
	logger := log.L()

	if cfg.Session.Room == "" {
		logger.Fatal().Msg("no room configured; set session.room or CHAT_ROOM")
	}

	var cred *auth.Credential
	if cfg.Session.Token != "" {
		cred, err = auth.ParseCredential(cfg.Session.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid bearer token")
		}
		if cred.Expired(time.Now()) {
			logger.Warn().Time("expires_at", cred.ExpiresAt).Msg("bearer token is expired; joining anonymously instead")
			cred = nil
		}
	}
	if cred != nil {
		logger.Info().Int64(log.FieldUserID, cred.UserID).Str(log.FieldUsername, cred.Username).Msg("joining as authenticated user")
	} else {
		logger.Info().Msg("no usable token; joining anonymously (read-only)")
	}

	disc := discovery.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout, logger)
	dialer := transport.NewWebsocketDialer(cfg.WebSocket, logger)

	connected := make(chan bool, 1)
	exited := make(chan struct{}, 1)

	sess := session.New(disc, dialer, session.Options{
		HistoryMax:         cfg.Session.HistoryMax,
		RejoinOnDisconnect: cfg.Session.RejoinOnDisconnect,
		Credential:         cred,
		Logger:             logger,
	}, session.Notifications{
		ConnectAttemptFinished: func(ok bool, reason string) {
			if !ok {
				logger.Error().Str("reason", reason).Msg("could not join room")
			}
			connected <- ok
		},
		MessageReceived: func(m *domain.Message) {
			if m.Action {
				fmt.Printf("* %s\n", m.Body)
				return
			}
			fmt.Printf("<%s> %s\n", m.Sender.Name, m.Body)
		},
		PrivateMessageReceived: func(m *domain.Message) {
			fmt.Printf("[whisper] <%s> %s\n", m.Sender.Name, m.Body)
		},
		MemberJoined: func(u *domain.User) {
			fmt.Printf("-- %s joined\n", u.Name)
		},
		MemberLeft: func(u *domain.User) {
			fmt.Printf("-- %s left\n", u.Name)
		},
		RoomExited: func(clean bool, reason string) {
			logger.Warn().Bool("clean", clean).Str("reason", reason).Msg("disconnected from room")
			exited <- struct{}{}
		},
	})

	if err := sess.Open(cfg.Session.Room); err != nil {
		logger.Fatal().Err(err).Msg("failed to open session")
	}
	defer sess.Close()

	if ok := <-connected; !ok {
		os.Exit(1)
	}
	logger.Info().Str(log.FieldRoomID, cfg.Session.Room).Msg("joined room")

	go readInput(sess)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-exited:
	}
}

func readInput(sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if target, text, ok := parseWhisper(line); ok {
			if !sess.SendWhisper(target, text) {
				fmt.Println("!! whisper not sent (not connected, or anonymous session)")
			}
			continue
		}
		if !sess.SendChatMessage(line) {
			fmt.Println("!! message not sent (not connected, or anonymous session)")
		}
	}
}

// parseWhisper recognises "/w <user> <text>".
func parseWhisper(line string) (target, text string, ok bool) {
	if !strings.HasPrefix(line, "/w ") {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "/w "))
	target, text, found := strings.Cut(rest, " ")
	if !found || target == "" || text == "" {
		return "", "", false
	}
	return target, text, true
}
