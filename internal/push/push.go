package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/trimquest/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrGone is returned when the push service reports the subscription as
// permanently invalid (404 Not Found or 410 Gone).
var ErrGone = errors.New("push subscription gone")

const (
	DefaultIcon  = "/icons/icon-192x192.png"
	DefaultBadge = "/icons/badge-72x72.png"
	defaultTTL   = 86400
)

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon,omitempty"`
	Badge string      `json:"badge,omitempty"`
	Data  PayloadData `json:"data"`
}

type PayloadData struct {
	URL            string `json:"url"`
	NotificationID int64  `json:"notificationId,omitempty"`
}

// StatusError carries the HTTP status of a rejected push.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("push service returned %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrGone) match 404 and 410 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrGone && (e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone)
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
}

// Configured reports whether both VAPID keys are present.
func (c Config) Configured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Service sends Web Push messages signed with the server's VAPID keys.
type Service struct {
	cfg        Config
	httpClient webpush.HTTPClient
}

type Option func(*Service)

// WithHTTPClient overrides the client used to reach push services.
func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(s *Service) {
		s.httpClient = c
	}
}

// NewService creates a push service with VAPID keys.
func NewService(cfg Config, opts ...Option) *Service {
	if cfg.Subject == "" {
		cfg.Subject = "mailto:noreply@trimquest.app"
	}
	s := &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send delivers one payload to one subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subject,
		TTL:             defaultTTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)

	// The scalar must be left-padded to 32 bytes.
	priv := make([]byte, 32)
	key.D.FillBytes(priv)
	privateKey = base64.RawURLEncoding.EncodeToString(priv)

	return publicKey, privateKey, nil
}
