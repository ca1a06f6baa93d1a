// Package gateway charges payment amounts against an external processor.
package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/config"
	"municipality/internal/models"
)

// Outcome is the processor's answer to a charge
type Outcome struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

// Charge is one attempt to collect an amount. Retries of the same attempt
// carry the same IdempotencyKey so the processor charges at most once.
type Charge struct {
	IdempotencyKey string               `json:"-"`
	Amount         float64              `json:"amount"`
	Method         models.PaymentMethod `json:"payment_method"`
}

// Gateway charges an amount using a payment method. A declined charge is a
// successful call with Outcome.Success false; errors mean the processor
// could not be reached.
type Gateway interface {
	Charge(ctx context.Context, charge Charge) (Outcome, error)
}

const (
	MessageApproved = "Payment processed successfully"
	MessageDeclined = "Payment declined by bank"
)

// New builds the gateway selected by cfg.Mode
func New(cfg config.GatewayConfig, logger *zap.Logger) (Gateway, error) {
	switch cfg.Mode {
	case "simulated", "":
		return NewSimulated(cfg.Delay, cfg.SuccessRate, logger), nil
	case "http":
		return NewHTTP(cfg, logger), nil
	default:
		return nil, errors.Errorf("unknown gateway mode %q", cfg.Mode)
	}
}

// Simulated approves a configurable share of charges after a delay
type Simulated struct {
	delay       time.Duration
	successRate float64
	logger      *zap.Logger
}

// NewSimulated creates a simulated processor
func NewSimulated(delay time.Duration, successRate float64, logger *zap.Logger) *Simulated {
	return &Simulated{
		delay:       delay,
		successRate: successRate,
		logger:      logger.Named("simulated_gateway"),
	}
}

// Charge waits for the configured delay and approves with the success rate
func (g *Simulated) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Outcome{}, errors.Wrap(ctx.Err(), "charge cancelled")
		case <-timer.C:
		}
	}

	outcome := Outcome{Success: rand.Float64() < g.successRate, Message: MessageDeclined}
	if outcome.Success {
		outcome.Message = MessageApproved
	}

	g.logger.Debug("Simulated charge",
		zap.String("idempotency_key", charge.IdempotencyKey),
		zap.Float64("amount", charge.Amount),
		zap.String("method", string(charge.Method)),
		zap.Bool("success", outcome.Success))
	return outcome, nil
}

// IdempotencyHeader carries Charge.IdempotencyKey to the remote processor
const IdempotencyHeader = "Idempotency-Key"

// HTTP forwards charges to a remote processor as JSON. Transport failures
// are retried cfg.RetryCount times with the same idempotency key.
type HTTP struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTP creates a processor client for cfg.URL
func NewHTTP(cfg config.GatewayConfig, logger *zap.Logger) *HTTP {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTP{client: client, logger: logger.Named("http_gateway")}
}

// Charge posts the charge to /charges. 402 answers carry a declined outcome.
func (g *HTTP) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	if charge.IdempotencyKey == "" {
		return Outcome{}, errors.New("charge has no idempotency key")
	}

	var outcome Outcome
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader(IdempotencyHeader, charge.IdempotencyKey).
		SetBody(charge).
		SetResult(&outcome).
		SetError(&outcome).
		Post("/charges")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "failed to reach payment processor")
	}

	switch {
	case resp.IsSuccess():
	case resp.StatusCode() == 402:
		outcome.Success = false
		if outcome.Message == "" {
			outcome.Message = MessageDeclined
		}
	default:
		return Outcome{}, errors.Errorf("payment processor returned status %d", resp.StatusCode())
	}

	g.logger.Info("Charge processed",
		zap.String("idempotency_key", charge.IdempotencyKey),
		zap.Float64("amount", charge.Amount),
		zap.Bool("success", outcome.Success),
		zap.String("transaction_id", outcome.TransactionID))
	return outcome, nil
}

// Scripted returns queued outcomes in order, then approves every charge.
// It never sleeps.
type Scripted struct {
	mu       sync.Mutex
	outcomes []scripted
	Calls    []Charge
}

type scripted struct {
	outcome Outcome
	err     error
}

// NewScripted creates a fake answering with outcomes in order
func NewScripted(outcomes ...Outcome) *Scripted {
	s := &Scripted{}
	for _, outcome := range outcomes {
		s.outcomes = append(s.outcomes, scripted{outcome: outcome})
	}
	return s
}

// Approve queues an approval carrying transactionID
func (s *Scripted) Approve(transactionID string) *Scripted {
	return s.push(scripted{outcome: Outcome{Success: true, TransactionID: transactionID, Message: MessageApproved}})
}

// Decline queues a declined charge
func (s *Scripted) Decline() *Scripted {
	return s.push(scripted{outcome: Outcome{Success: false, Message: MessageDeclined}})
}

// Fail queues a transport error
func (s *Scripted) Fail(err error) *Scripted {
	return s.push(scripted{err: err})
}

func (s *Scripted) push(next scripted) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, next)
	return s
}

func (s *Scripted) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, charge)
	if len(s.outcomes) == 0 {
		return Outcome{Success: true, Message: MessageApproved}, nil
	}
	next := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return next.outcome, next.err
}

// CallCount returns how many charges were attempted
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
