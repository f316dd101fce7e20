// internal/notification/notifier.go
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awsclients "tulipai-funnel/internal/common/aws"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/proposal"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrMissingRecipient       = errors.New("MISSING_RECIPIENT")
)

const (
	TypeConfirmation = "confirmation"
	TypeQuote        = "quote"
	TypeSalesAlert   = "sales_alert"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

// Notifier sends lead-facing mail through SES and sales alerts through SNS.
// Either client may be nil when its channel is disabled.
type Notifier struct {
	config *Config
	ses    awsclients.SESAPI
	sns    awsclients.SNSAPI
	logger logger.Logger
	now    func() time.Time
}

func NewNotifier(config *Config, sesClient awsclients.SESAPI, snsClient awsclients.SNSAPI, log logger.Logger) *Notifier {
	return &Notifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notifications"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SendConfirmation mails the lead a recap of their submission.
func (n *Notifier) SendConfirmation(ctx context.Context, sub models.Submission) (*models.Notification, error) {
	note := n.newNotification(sub.ID, sub.Email, TypeConfirmation, ChannelEmail)
	if !n.config.EmailEnabled || n.ses == nil {
		note.Status = StatusDisabled
		return note, nil
	}
	if strings.TrimSpace(sub.Email) == "" {
		return nil, fmt.Errorf("%w: submission %s has no email", ErrMissingRecipient, sub.ID)
	}

	body := ConfirmationBody(sub.FormData)
	messageID, err := n.sendEmail(ctx, sub.Email, n.config.ConfirmSubject, body, "")
	if err != nil {
		note.Status = StatusFailed
		return note, err
	}
	note.Status = StatusSent
	note.MessageID = messageID
	return note, nil
}

// SendQuote mails the proposal to the lead, as HTML with the markdown as the
// text alternative.
func (n *Notifier) SendQuote(ctx context.Context, email models.QuoteEmail) (*models.Notification, error) {
	note := n.newNotification(email.SubmissionID, email.ContactEmail, TypeQuote, ChannelEmail)
	if !n.config.EmailEnabled || n.ses == nil {
		note.Status = StatusDisabled
		return note, fmt.Errorf("%w: email delivery is disabled", ErrNotificationSendFailed)
	}
	if strings.TrimSpace(email.ContactEmail) == "" {
		return nil, fmt.Errorf("%w: contact email is empty", ErrMissingRecipient)
	}

	subject := email.SubjectOverride
	if subject == "" {
		subject = n.config.QuoteSubject
	}
	if subject == "" {
		subject = proposal.Subject(email.CompanyName)
	}

	page, err := proposal.RenderPage(email.CompanyName, email.QuoteContent)
	if err != nil {
		return nil, fmt.Errorf("%w: render proposal: %v", ErrNotificationSendFailed, err)
	}

	messageID, err := n.sendEmail(ctx, email.ContactEmail, subject, email.QuoteContent, page)
	if err != nil {
		note.Status = StatusFailed
		return note, err
	}
	note.Status = StatusSent
	note.MessageID = messageID
	note.Payload = map[string]interface{}{"subject": subject}
	return note, nil
}

// NotifySales texts every configured sales phone when the budget reaches the
// alert threshold.
func (n *Notifier) NotifySales(ctx context.Context, sub models.Submission) ([]models.Notification, error) {
	if !n.config.SMSEnabled || n.sns == nil {
		note := n.newNotification(sub.ID, "", TypeSalesAlert, ChannelSMS)
		note.Status = StatusDisabled
		return []models.Notification{*note}, nil
	}
	if sub.BudgetValue() < n.config.BudgetThreshold {
		note := n.newNotification(sub.ID, "", TypeSalesAlert, ChannelSMS)
		note.Status = StatusSkipped
		note.Payload = map[string]interface{}{"budget": sub.BudgetValue(), "threshold": n.config.BudgetThreshold}
		return []models.Notification{*note}, nil
	}

	message := SalesAlert(sub)
	out := make([]models.Notification, 0, len(n.config.SalesPhones))
	var failed int
	for _, phone := range n.config.SalesPhones {
		note := n.newNotification(sub.ID, phone, TypeSalesAlert, ChannelSMS)
		messageID, err := n.sendSMS(ctx, phone, message)
		if err != nil {
			n.logger.Error("sales alert failed", map[string]interface{}{
				"error":        err,
				"phone":        phone,
				"submissionId": sub.ID,
			})
			note.Status = StatusFailed
			failed++
		} else {
			note.Status = StatusSent
			note.MessageID = messageID
		}
		out = append(out, *note)
	}

	if failed > 0 && failed == len(n.config.SalesPhones) {
		return out, fmt.Errorf("%w: all %d sales alerts failed", ErrNotificationSendFailed, failed)
	}
	return out, nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, text, html string) (string, error) {
	body := &sestypes.Body{
		Text: &sestypes.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
	}
	if html != "" {
		body.Html = &sestypes.Content{Data: aws.String(html), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(n.config.FromEmail),
	}
	if n.config.ReplyTo != "" {
		input.ReplyToAddresses = []string{n.config.ReplyTo}
	}

	out, err := n.ses.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("email send failed", map[string]interface{}{
			"error":   err,
			"to":      to,
			"subject": subject,
		})
		return "", fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	messageID := aws.ToString(out.MessageId)
	n.logger.Info("email sent", map[string]interface{}{
		"to":        to,
		"messageId": messageID,
	})
	return messageID, nil
}

func (n *Notifier) sendSMS(ctx context.Context, phone, message string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if n.config.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.config.SMSSenderID),
			},
		}
	}

	out, err := n.sns.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	return aws.ToString(out.MessageId), nil
}

func (n *Notifier) newNotification(submissionID, recipient, typ, channel string) *models.Notification {
	return &models.Notification{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		Recipient:    recipient,
		Type:         typ,
		Channel:      channel,
		SentAt:       n.now().Format(time.RFC3339),
	}
}
