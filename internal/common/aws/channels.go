// Package aws builds the SES and SNS clients behind submission notifications.
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SESAPI is the subset of the SES client the mailers use.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSAPI is the subset of the SNS client used for sales SMS alerts.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ChannelOptions selects which notification channels need a client.
type ChannelOptions struct {
	Region string
	Email  bool
	SMS    bool
}

// Channels holds one client per enabled channel. A nil field means the
// channel is off.
type Channels struct {
	Email SESAPI
	SMS   SNSAPI
}

// NewChannels loads the default AWS credential chain once and builds the
// clients for the enabled channels.
func NewChannels(ctx context.Context, opts ChannelOptions) (Channels, error) {
	var ch Channels
	if !opts.Email && !opts.SMS {
		return ch, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return ch, fmt.Errorf("load aws config for %s: %w", opts.Region, err)
	}

	if opts.Email {
		ch.Email = ses.NewFromConfig(cfg)
	}
	if opts.SMS {
		ch.SMS = sns.NewFromConfig(cfg)
	}
	return ch, nil
}
