// internal/notification/config.go
package notification

import (
	"fmt"

	"tulipai-funnel/internal/common/config"
)

type Config struct {
	EmailEnabled    bool
	FromEmail       string
	ReplyTo         string
	QuoteSubject    string
	ConfirmSubject  string
	SMSEnabled      bool
	SalesPhones     []string
	SMSSenderID     string
	BudgetThreshold int64
}

func DefaultConfig() *Config {
	return &Config{
		EmailEnabled:    true,
		FromEmail:       "proposals@tulipai.example",
		ConfirmSubject:  "We received your AI proposal request",
		BudgetThreshold: 50000,
	}
}

// LoadConfig merges the notification and AWS integration sections.
func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	n := cfg.Notifications

	c.EmailEnabled = n.Email.Enabled && cfg.Integrations.AWS.SES.Enabled
	if n.Email.FromEmail != "" {
		c.FromEmail = n.Email.FromEmail
	} else if cfg.Integrations.AWS.SES.FromEmail != "" {
		c.FromEmail = cfg.Integrations.AWS.SES.FromEmail
	}
	c.ReplyTo = n.Email.ReplyTo
	c.QuoteSubject = n.Email.QuoteSubject
	if n.Email.ConfirmSubject != "" {
		c.ConfirmSubject = n.Email.ConfirmSubject
	}

	c.SMSEnabled = n.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled
	c.SalesPhones = n.SMS.SalesPhones
	c.SMSSenderID = cfg.Integrations.AWS.SNS.DefaultSMSSenderID
	if n.SMS.BudgetThreshold > 0 {
		c.BudgetThreshold = int64(n.SMS.BudgetThreshold)
	}
	return c
}

func (c *Config) Validate() error {
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when email is enabled")
	}
	if c.SMSEnabled && len(c.SalesPhones) == 0 {
		return fmt.Errorf("sales_phones is required when sms is enabled")
	}
	return nil
}
