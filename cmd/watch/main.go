// Command watch joins or resumes a room from the terminal and logs what a
// player's screen would show as the room changes.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"sketchspy/internal/client"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	sessionFile := flag.String("session", defaultSessionFile(), "where the session is persisted")
	room := flag.String("room", "", "room code to join; empty resumes the saved session")
	name := flag.String("name", "", "player name used with -room")
	reload := flag.Bool("reload", true, "treat startup as a reload and give up a seat in a running round")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var last client.View
	rec := client.NewReconciler(
		client.NewHTTPAPI(*server, nil),
		client.NewWSDialer(*server, logger),
		client.NewFileStore(*sessionFile),
		client.Options{
			Logger: logger,
			OnChange: func(s *client.State) {
				if v := s.View(); v != last {
					last = v
					logView(logger, s)
				}
			},
		},
	)

	reason := client.ReasonReconnect
	if *reload {
		reason = client.ReasonReload
	}

	if *room != "" {
		if *name == "" {
			logger.Error("-name is required with -room")
			os.Exit(2)
		}
		if _, err := rec.Enter(ctx, *room, *name, ""); err != nil {
			logger.Error("failed to join", "room", *room, "error", err)
			os.Exit(1)
		}
		reason = client.ReasonReconnect
	}

	err := rec.Run(ctx, reason)
	switch {
	case errors.Is(err, client.ErrNoSession):
		logger.Info("nothing to resume, pass -room and -name to join")
	case errors.Is(err, client.ErrRemoved):
		logger.Info("removed from room")
	case errors.Is(err, context.Canceled):
	case err != nil:
		logger.Error("watch stopped", "error", err)
		os.Exit(1)
	}
}

func logView(logger *slog.Logger, s *client.State) {
	attrs := []any{"view", s.View(), "room", s.RoomCode, "players", len(s.Players), "admin", s.IsAdmin()}
	if sum, ok := s.Summary(); ok {
		attrs = append(attrs, "spectating", true, "active", sum.ActiveCount, "deadline", sum.Deadline.Format(time.TimeOnly))
	}
	if r := s.Round; r != nil && r.Result != nil {
		attrs = append(attrs, "winner", r.Result.Winner, "impostor", r.Result.ImpostorID)
	}
	if s.LastEnded != nil {
		attrs = append(attrs, "lastEnded", s.LastEnded.Reason)
	}
	logger.Info("screen", attrs...)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sketchspy", "session.json")
}
