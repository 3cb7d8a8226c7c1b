package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/config"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/feed"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/hub"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/httpapi"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/notify"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/otp"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/queue"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store/postgres"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("bookmylook", cfg.Environment)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	db := postgres.NewStore(pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var otpStore otp.Store
	switch cfg.OTPStore {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		otpStore = otp.NewRedisStore(client)
	default:
		memStore := otp.NewMemoryStore()
		go otp.StartSweep(ctx, cfg.OTPSweepInterval, memStore)
		otpStore = memStore
	}

	notifier := notify.New(notify.Config{
		Kind:         cfg.OTPNotifier,
		WebhookURL:   cfg.WebhookURL,
		WebhookToken: cfg.WebhookToken,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
		SMTPFrom:     cfg.SMTPFrom,
		SMSGateway:   cfg.SMSGateway,
	})

	otpService := otp.NewService(otpStore, notifier, db)
	aggregator := queue.NewAggregator(db)
	queueFeed := feed.New(aggregator, cfg.FeedInterval)
	h := hub.New()

	// The feed is the one polling authority; the hub relays each
	// snapshot to every connected watcher.
	queueFeed.Subscribe(func(update feed.Update) {
		payload, err := json.Marshal(update)
		if err != nil {
			return
		}
		env := eventEnvelope{Type: "queue.snapshot", Payload: payload, CreatedAt: update.FetchedAt}
		data, err := json.Marshal(env)
		if err != nil {
			return
		}
		h.Broadcast(data, hub.Subscription{})
	})
	queueFeed.Start()
	defer queueFeed.Stop()

	handler := httpapi.NewHandler(otpService, aggregator, queueFeed, db)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		PhonePerMinute: cfg.PhoneRateLimitPerMinute,
		PhoneBurst:     cfg.PhoneRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("/realtime/", sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			h.UpdateSubscription(client, hub.Subscription{SalonID: parsed.SalonID})
		}
	}))

	root := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "bookmylook")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bookmylook listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go pollOutbox(ctx, cfg, db, h)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// pollOutbox relays queue mutation events to realtime watchers of the
// affected salon. Snapshots and events share the hub but have distinct
// envelope types.
func pollOutbox(ctx context.Context, cfg config.Config, db store.Store, h *hub.Hub) {
	if cfg.OutboxPollInterval <= 0 {
		return
	}
	offset := store.OutboxOffset{
		LastEventTime: time.Now().UTC(),
		LastEventID:   zeroUUID,
	}
	var running int32

	ticker := time.NewTicker(cfg.OutboxPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		events, err := db.ListOutboxEvents(pollCtx, offset, cfg.OutboxBatchSize)
		cancel()
		if err != nil {
			log.Printf("outbox poll error: %v", err)
			atomic.StoreInt32(&running, 0)
			continue
		}
		offset = relayEvents(h, events, offset)
		atomic.StoreInt32(&running, 0)
	}
}

// relayEvents broadcasts each event to its salon's watchers and returns
// the advanced cursor. The event id rides along with the timestamp so
// events sharing a created_at across batch boundaries are not skipped.
func relayEvents(h *hub.Hub, events []store.OutboxEvent, offset store.OutboxOffset) store.OutboxOffset {
	for _, event := range events {
		offset.LastEventTime = event.CreatedAt
		offset.LastEventID = event.EventID
		env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
		payload, err := json.Marshal(env)
		if err != nil {
			continue
		}
		h.Broadcast(payload, hub.Subscription{SalonID: event.SalonID})
	}
	return offset
}
