// internal/payment/payment.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
)

var ErrPaymentFailed = errors.New("PAYMENT_FAILED")

type Config struct {
	Delay time.Duration
}

func DefaultConfig() *Config {
	return &Config{Delay: 1500 * time.Millisecond}
}

func LoadConfig(cfg config.PaymentConfig) *Config {
	c := DefaultConfig()
	if cfg.Delay >= 0 {
		c.Delay = config.GetDuration(cfg.Delay)
	}
	return c
}

// Simulated stands in for the card processor: it waits for the configured
// delay and then accepts the charge.
type Simulated struct {
	config *Config
	logger logger.Logger
}

func NewSimulated(config *Config, log logger.Logger) *Simulated {
	return &Simulated{
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "payment"}),
	}
}

func (s *Simulated) Charge(ctx context.Context, form models.FormData) error {
	if form.Email == "" {
		return fmt.Errorf("%w: no billing contact", ErrPaymentFailed)
	}

	timer := time.NewTimer(s.config.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPaymentFailed, ctx.Err())
	case <-timer.C:
	}

	s.logger.Info("payment accepted", map[string]interface{}{
		"companyName": form.CompanyName,
		"budget":      form.Budget,
	})
	return nil
}
