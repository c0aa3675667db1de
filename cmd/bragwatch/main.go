package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bragboard/client/api"
	"bragboard/client/feed"
	"bragboard/client/session"
	"bragboard/client/state"
	"bragboard/server/board/domain"
	cmnenv "bragboard/server/common/env"
	commonlog "bragboard/server/common/log"
)

type config struct {
	BaseURL        string
	Email          string
	Password       string
	Department     string
	TokenFile      string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	Push           bool
}

func loadConfig() config {
	return config{
		BaseURL:        cmnenv.String("BRAGBOARD_URL", "http://localhost:8080"),
		Email:          cmnenv.String("BRAGBOARD_EMAIL", ""),
		Password:       cmnenv.String("BRAGBOARD_PASSWORD", ""),
		Department:     cmnenv.String("BRAGBOARD_DEPARTMENT", ""),
		TokenFile:      cmnenv.String("BRAGBOARD_TOKEN_FILE", ""),
		PollInterval:   cmnenv.Duration("BRAGBOARD_POLL_INTERVAL", feed.DefaultPollInterval),
		ReconnectDelay: cmnenv.Duration("BRAGBOARD_RECONNECT_DELAY", feed.DefaultReconnectDelay),
		Push:           cmnenv.Bool("BRAGBOARD_PUSH", true),
	}
}

func main() {
	if err := cmnenv.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	commonlog.ConfigureFromEnv()
	cfg := loadConfig()

	sess, err := session.NewWithTokenFile(cfg.TokenFile)
	if err != nil {
		log.Fatalf("restore session: %v", err)
	}
	client := api.NewClient(cfg.BaseURL, sess)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	user, err := signIn(ctx, client, cfg)
	if err != nil {
		log.Fatalf("sign in: %v", err)
	}
	commonlog.Infof("event=bragwatch action=sign_in status=ok user_id=%d department=%s", user.ID, user.Department)

	board := feed.NewFeed(client, api.ShoutoutFilter{Department: cfg.Department})
	inbox := feed.NewInbox(client, 0)
	board.Subscribe(logFeed)
	inbox.Subscribe(func(s state.Snapshot[domain.Notification]) {
		if s.Status == state.StatusLoaded {
			commonlog.Infof("event=bragwatch action=inbox status=loaded count=%d unread=%d", len(s.Items), inbox.Unread())
		}
	})
	sess.OnInvalidate(func(reason string) {
		commonlog.Warnf("event=bragwatch action=session status=invalidated reason=%s", reason)
		stop()
	})

	if err := board.Refresh(ctx); err != nil {
		commonlog.Warnf("event=bragwatch action=feed_refresh status=failed error=%v", err)
	}
	if err := inbox.Refresh(ctx); err != nil {
		commonlog.Warnf("event=bragwatch action=inbox_refresh status=failed error=%v", err)
	}

	refreshAll := func(ctx context.Context) error {
		return errors.Join(board.Refresh(ctx), inbox.Refresh(ctx))
	}
	poller := feed.NewPoller("bragwatch", cfg.PollInterval, sess, refreshAll)

	if !cfg.Push {
		poller.Start(ctx)
		<-ctx.Done()
		poller.Stop()
		return
	}

	listener := feed.NewPushListener(feed.PushConfig{
		URL:            client.WebSocketURL(),
		Header:         client.AuthHeader,
		Session:        sess,
		ReconnectDelay: cfg.ReconnectDelay,
		Fallback:       poller,
		OnEvent: func(ctx context.Context, ev feed.PushEvent) {
			commonlog.Debugf("event=bragwatch action=push status=ok type=%s shoutout_id=%d", ev.Type, ev.ShoutoutID)
			inbox.HandleEvent(ctx, ev)
			board.HandleEvent(ctx, ev)
		},
	})
	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		commonlog.Errorf("event=bragwatch action=push status=failed error=%v", err)
	}
}

// signIn reuses a restored token when the server still accepts it.
func signIn(ctx context.Context, client *api.Client, cfg config) (domain.User, error) {
	if _, ok := client.Session().Token(); ok {
		user, err := client.Me(ctx)
		if err == nil {
			client.Session().SetUser(user)
			return user, nil
		}
		if !api.IsStatus(err, http.StatusUnauthorized) {
			return domain.User{}, err
		}
	}
	if cfg.Email == "" || cfg.Password == "" {
		return domain.User{}, errors.New("BRAGBOARD_EMAIL and BRAGBOARD_PASSWORD are required")
	}
	return client.Login(ctx, cfg.Email, cfg.Password)
}

func logFeed(s state.Snapshot[domain.Shoutout]) {
	switch s.Status {
	case state.StatusLoaded:
		commonlog.Infof("event=bragwatch action=feed status=loaded count=%d refresh=%d", len(s.Items), s.Refresh)
		for _, item := range s.Items {
			counts := item.ReactionCounts
			commonlog.Debugf("event=bragwatch action=shoutout id=%d sender=%q likes=%d claps=%d stars=%d comments=%d", item.ID, item.Sender.Name, counts.Like, counts.Clap, counts.Star, len(item.Comments))
		}
	case state.StatusError:
		commonlog.Warnf("event=bragwatch action=feed status=error count=%d error=%v", len(s.Items), s.Err)
	}
}
