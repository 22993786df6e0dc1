package events

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signatureTTL = 5 * time.Minute

// DeliveryClaims are carried in the Authorization header of every webhook call.
// Receivers verify the HS256 signature and compare BodySHA256 with the request body.
type DeliveryClaims struct {
	BodySHA256 string `json:"body_sha256"`
	jwt.RegisteredClaims
}

type WebhookSink struct {
	URL    string
	Secret []byte
	Client *http.Client
}

// NewWebhookSink returns nil when url is empty.
func NewWebhookSink(url string, secret []byte) *WebhookSink {
	if url == "" {
		return nil
	}
	return &WebhookSink{URL: url, Secret: secret, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Sign(ev Event, body []byte) (string, error) {
	sum := sha256.Sum256(body)
	now := time.Now()
	claims := DeliveryClaims{
		BodySHA256: hex.EncodeToString(sum[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskboard",
			Subject:   ev.Type,
			ID:        ev.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(signatureTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(w.Secret)
}

func (w *WebhookSink) Send(ctx context.Context, ev Event) error {
	if w == nil || w.URL == "" {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", ev.Type)
	if len(w.Secret) > 0 {
		sig, err := w.Sign(ev, body)
		if err != nil {
			return fmt.Errorf("webhook: sign: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+sig)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", res.StatusCode)
	}
	return nil
}

// VerifyDelivery checks a webhook signature against the received body.
func VerifyDelivery(token string, secret, body []byte) (*DeliveryClaims, error) {
	claims := &DeliveryClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)
	if claims.BodySHA256 != hex.EncodeToString(sum[:]) {
		return nil, fmt.Errorf("body digest mismatch")
	}
	return claims, nil
}
