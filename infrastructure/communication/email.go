package communication

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type EmailInfo struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain notification emails through SES.
type Mailer struct {
	client sesAPI
	sender string
}

func NewMailer(ctx context.Context, sender string) (*Mailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Mailer{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

func buildEmailInput(info *EmailInfo) (*ses.SendEmailInput, error) {
	if info.From == "" {
		return nil, errors.New("email sender is required")
	}
	if len(info.To) == 0 {
		return nil, errors.New("at least one recipient is required")
	}

	body := &types.Body{}
	if info.Text != "" {
		body.Text = &types.Content{Data: aws.String(info.Text), Charset: aws.String("UTF-8")}
	}
	if info.HTML != "" {
		body.Html = &types.Content{Data: aws.String(info.HTML), Charset: aws.String("UTF-8")}
	}

	return &ses.SendEmailInput{
		Source:      aws.String(info.From),
		Destination: &types.Destination{ToAddresses: info.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(info.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}, nil
}

func (m *Mailer) Send(ctx context.Context, to []string, subject, text string) (string, error) {
	input, err := buildEmailInput(&EmailInfo{From: m.sender, To: to, Subject: subject, Text: text})
	if err != nil {
		return "", err
	}
	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
