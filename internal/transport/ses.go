package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends emails via AWS SES using the SDK v2.
type SESSender struct {
	client SESAPI
	env    Envelope
}

// NewSES creates an SES sender. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewSES(ctx context.Context, cfg config.SESConfig, env Envelope) (*SESSender, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrInvalidConfig, err)
	}
	return NewSESWithClient(sesv2.NewFromConfig(awsCfg), env), nil
}

// NewSESWithClient wraps an existing SES client.
func NewSESWithClient(client SESAPI, env Envelope) *SESSender {
	return &SESSender{client: client, env: env}
}

// Send delivers one message through AWS SES.
func (s *SESSender) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.env.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.env.ReplyTo != "" {
		input.ReplyToAddresses = []string{s.env.ReplyTo}
	}
	if msg.Tag != "" {
		input.EmailTags = []types.MessageTag{{Name: aws.String("category"), Value: aws.String(msg.Tag)}}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", transportErr(domain.ProviderSES, err)
	}
	id := aws.ToString(out.MessageId)
	logger.Debug("[SES] sent", "email", msg.To, "message_id", id)
	return id, nil
}
