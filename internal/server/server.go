package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/trimquest/internal/cleanup"
	"github.com/dukerupert/trimquest/internal/config"
	"github.com/dukerupert/trimquest/internal/email"
	"github.com/dukerupert/trimquest/internal/handler"
	"github.com/dukerupert/trimquest/internal/middleware"
	"github.com/dukerupert/trimquest/internal/notify"
	"github.com/dukerupert/trimquest/internal/push"
	"github.com/dukerupert/trimquest/internal/store"
	ws "github.com/dukerupert/trimquest/internal/websocket"
)

type Server struct {
	db            *sql.DB
	cfg           *config.Config
	hub           *ws.Hub
	notificationH *handler.NotificationHandler
	preferenceH   *handler.PreferenceHandler
	pushH         *handler.PushHandler
	internalH     *handler.InternalHandler
	directoryH    *handler.DirectoryHandler
	users         *store.UserStore
	notifications *store.NotificationStore
	dispatcher    *notify.Dispatcher
	groups        *notify.GroupNotifier
	scheduler     *cleanup.Scheduler
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

// Option customizes collaborators, mostly for tests.
type Option func(*options)

type options struct {
	pushSender push.Sender
	emailHTTP  *http.Client
}

// WithPushSender replaces the Web Push transport.
func WithPushSender(s push.Sender) Option {
	return func(o *options) { o.pushSender = s }
}

// WithEmailHTTPClient routes Postmark calls through c.
func WithEmailHTTPClient(c *http.Client) Option {
	return func(o *options) { o.emailHTTP = c }
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	groupStore := store.NewGroupStore(db)
	notificationStore := store.NewNotificationStore(db)
	preferenceStore := store.NewPreferenceStore(db)
	pushStore := store.NewPushStore(db)

	pushLogger := logger.With("component", "push")
	emailLogger := logger.With("component", "email")
	notifyLogger := logger.With("component", "notify")

	// Push: without VAPID keys the notifier gets no sender and every send is a no-op.
	var pushService *push.Service
	var sender push.Sender
	pushCfg := push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subject:         cfg.VAPIDSubject,
	}
	if pushCfg.Configured() {
		pushService = push.NewService(pushCfg)
		sender = pushService
		pushLogger.Info("web push enabled")
	} else {
		pushLogger.Info("web push disabled, VAPID keys not set")
	}
	if o.pushSender != nil {
		sender = o.pushSender
	}
	pushNotifier := push.NewNotifier(sender, pushStore, pushLogger)

	var emailOpts []email.Option
	if o.emailHTTP != nil {
		emailOpts = append(emailOpts, email.WithHTTPClient(o.emailHTTP))
	}
	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.PublicBaseURL, emailOpts...)
	if !emailClient.Configured() {
		emailLogger.Info("email disabled, Postmark token not set")
	}
	emailNotifier := email.NewNotifier(emailClient, userStore, emailLogger)

	dispatcher := notify.NewDispatcher(notificationStore, preferenceStore, pushNotifier, emailNotifier, notifyLogger,
		notify.WithLocation(cfg.QuietHoursLocation),
		notify.WithPublisher(hub),
	)
	groups := notify.NewGroupNotifier(dispatcher, groupStore, notifyLogger)

	scheduler := cleanup.NewScheduler(pushStore, notificationStore, cleanup.Config{
		StaleSubscriptionAge:  time.Duration(cfg.StaleSubscriptionDays) * 24 * time.Hour,
		NotificationRetention: time.Duration(cfg.NotificationRetentionDays) * 24 * time.Hour,
		Location:              cfg.QuietHoursLocation,
	}, logger.With("component", "cleanup"))

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		notificationH: handler.NewNotificationHandler(notificationStore, hub, logger),
		preferenceH:   handler.NewPreferenceHandler(preferenceStore, logger),
		pushH:         handler.NewPushHandler(pushStore, pushService, pushNotifier, pushLogger),
		internalH:     handler.NewInternalHandler(dispatcher, groups, groupStore, notifyLogger),
		directoryH:    handler.NewDirectoryHandler(userStore, groupStore, logger),
		users:         userStore,
		notifications: notificationStore,
		dispatcher:    dispatcher,
		groups:        groups,
		scheduler:     scheduler,
		rateLimiter:   middleware.NewRateLimiter(time.Minute, 5),
		logger:        logger,
	}
}

// Dispatcher returns the single-user dispatch path.
func (s *Server) Dispatcher() *notify.Dispatcher {
	return s.dispatcher
}

// Scheduler returns the cleanup scheduler; the caller starts and stops it.
func (s *Server) Scheduler() *cleanup.Scheduler {
	return s.scheduler
}

// Hub returns the realtime hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// StartLimiterCleanup drops idle rate-limit buckets until ctx is done.
func (s *Server) StartLimiterCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Cleanup(30 * time.Minute)
			}
		}
	}()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Service-to-service routes
	internalMux := http.NewServeMux()
	internalMux.HandleFunc("POST /internal/notifications", s.internalH.CreateNotification)
	internalMux.HandleFunc("POST /internal/groups/{id}/notifications", s.internalH.NotifyGroup)
	internalMux.HandleFunc("POST /internal/users", s.directoryH.UpsertUser)
	internalMux.HandleFunc("POST /internal/groups", s.directoryH.CreateGroup)
	internalMux.HandleFunc("POST /internal/groups/{id}/members", s.directoryH.SetMember)
	internalMux.HandleFunc("DELETE /internal/groups/{id}/members/{userID}", s.directoryH.RemoveMember)
	outerMux.Handle("/internal/", middleware.RequireInternalKey(s.cfg.InternalKey)(internalMux))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth([]byte(s.cfg.JWTSecret))
	ensureUser := middleware.EnsureUser(s.users, s.logger)
	outerMux.Handle("/", authMiddleware(ensureUser(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}` + "\n"))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.UserKey)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Notification API routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Delete)
	mux.HandleFunc("GET /api/notifications/preferences", s.preferenceH.Get)
	mux.HandleFunc("PUT /api/notifications/preferences", s.preferenceH.Update)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.Handle("POST /api/push/test", s.rateLimited(s.pushH.TestNotification))

	// Realtime feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.notifications, s.cfg.WSOrigins, s.logger.With("component", "websocket")))
}
