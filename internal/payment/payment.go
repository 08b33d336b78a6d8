// Package payment verifies payment claims sent by the client before a
// submission is accepted.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/config"
)

// Claim is what the client says it paid.
type Claim struct {
	Amount        float64
	Method        string
	TransactionID string
}

// Verifier confirms a claim. A claim that cannot be confirmed yields an error
// matching apperr.ErrPaymentRequired; other errors mean the check itself failed.
type Verifier interface {
	Verify(ctx context.Context, claim Claim) error
}

// New picks the verifier for the configured mode.
func New(cfg config.PaymentConfig, logger *slog.Logger) (Verifier, error) {
	switch cfg.Mode {
	case config.PaymentModeGateway:
		return NewGatewayVerifier(cfg.GatewayBaseURL, cfg.SecretKey, cfg.Currency, cfg.Timeout), nil
	case config.PaymentModeTrust, "":
		return NewTrustVerifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown payment mode %q", cfg.Mode)
	}
}

// TrustVerifier accepts every claim. Only meant for local development.
type TrustVerifier struct {
	logger *slog.Logger
}

func NewTrustVerifier(logger *slog.Logger) *TrustVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustVerifier{logger: logger}
}

func (v *TrustVerifier) Verify(ctx context.Context, claim Claim) error {
	v.logger.WarnContext(ctx, "payment accepted without verification",
		slog.String("transaction_id", claim.TransactionID),
		slog.Float64("amount", claim.Amount),
	)
	return nil
}

// GatewayVerifier looks the transaction up on the payment gateway.
type GatewayVerifier struct {
	baseURL   string
	secretKey string
	currency  string
	client    *http.Client
}

func NewGatewayVerifier(baseURL, secretKey, currency string, timeout time.Duration) *GatewayVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayVerifier{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		currency:  currency,
		client:    &http.Client{Timeout: timeout},
	}
}

type chargeStatus struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

var paidStatuses = map[string]bool{
	"SUCCEEDED": true,
	"PAID":      true,
	"CAPTURED":  true,
	"SETTLED":   true,
}

func (v *GatewayVerifier) Verify(ctx context.Context, claim Claim) error {
	if strings.TrimSpace(claim.TransactionID) == "" {
		return fmt.Errorf("missing transaction id: %w", apperr.ErrPaymentRequired)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/charges/"+url.PathEscape(claim.TransactionID), nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(v.secretKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("query payment gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("transaction %s unknown to gateway: %w", claim.TransactionID, apperr.ErrPaymentRequired)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var charge chargeStatus
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	if !paidStatuses[strings.ToUpper(charge.Status)] {
		return fmt.Errorf("transaction %s is %s: %w", claim.TransactionID, charge.Status, apperr.ErrPaymentRequired)
	}
	if math.Abs(charge.Amount-claim.Amount) > 0.005 {
		return fmt.Errorf("transaction %s amount %.2f does not match claim %.2f: %w",
			claim.TransactionID, charge.Amount, claim.Amount, apperr.ErrPaymentRequired)
	}
	if v.currency != "" && charge.Currency != "" && !strings.EqualFold(v.currency, charge.Currency) {
		return fmt.Errorf("transaction %s paid in %s: %w", claim.TransactionID, charge.Currency, apperr.ErrPaymentRequired)
	}
	return nil
}

// IsUnverified reports whether err means the claim was rejected rather than the check failing.
func IsUnverified(err error) bool {
	return errors.Is(err, apperr.ErrPaymentRequired)
}
