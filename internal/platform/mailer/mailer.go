// Package mailer はワンタイムコードのメール送信を提供します。
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"cuecards_backend/internal/feature/auth/usecase"
	infrahttp "cuecards_backend/internal/platform/http"
	"cuecards_backend/internal/shared/ratelimiter"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	confirmationTemplate  = "confirmation.html"
	resetPasswordTemplate = "reset_password.html"

	confirmationSubject  = "Confirm your email"
	resetPasswordSubject = "Reset your password"
)

// Config holds the SES settings. It is filled from MAIL_* variables.
type Config struct {
	From               string        `env:"FROM"`
	AWSRegion          string        `env:"AWS_REGION"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	RatePerSecond      int           `env:"RATE_PER_SECOND" envDefault:"1"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether SES can be used.
func (c Config) Enabled() bool {
	return c.From != "" && c.AWSRegion != ""
}

// SESAPI is the subset of the SES v2 client the mailer needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NewSESClient builds an SES v2 client. Static keys are used when both are
// set; otherwise the default AWS credential chain applies.
func NewSESClient(ctx context.Context, cfg Config) (*sesv2.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithHTTPClient(infrahttp.NewHTTPClient(infrahttp.ClientConfig{Timeout: cfg.Timeout})),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return sesv2.NewFromConfig(awsCfg), nil
}

type templateData struct {
	Nickname string
	Code     string
	TTL      string
}

// SESMailer sends HTML mail through Amazon SES.
type SESMailer struct {
	client    SESAPI
	from      string
	limiter   ratelimiter.Limiter
	templates *template.Template
	logger    *slog.Logger
}

var _ usecase.Mailer = (*SESMailer)(nil)

// NewSESMailer creates a new SESMailer. limiter throttles sends to the SES quota.
func NewSESMailer(client SESAPI, from string, limiter ratelimiter.Limiter, logger *slog.Logger) (*SESMailer, error) {
	tmpl, err := template.New("mail").Option("missingkey=error").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	return &SESMailer{
		client:    client,
		from:      from,
		limiter:   limiter,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// SendConfirmationEmail sends the email confirmation code.
func (m *SESMailer) SendConfirmationEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return m.send(ctx, email, confirmationSubject, confirmationTemplate, templateData{
		Nickname: nickname,
		Code:     code,
		TTL:      HumanizeDuration(ttl),
	})
}

// SendResetPasswordEmail sends the password reset code.
func (m *SESMailer) SendResetPasswordEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return m.send(ctx, email, resetPasswordSubject, resetPasswordTemplate, templateData{
		Nickname: nickname,
		Code:     code,
		TTL:      HumanizeDuration(ttl),
	})
}

func (m *SESMailer) send(ctx context.Context, to, subject, templateName string, data templateData) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limiter: %w", err)
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body.String()), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.InfoContext(ctx, "email sent", "template", templateName)
	return nil
}

// LogMailer writes codes to the log instead of sending mail. It is wired
// when SES is not configured, for local development.
type LogMailer struct {
	logger *slog.Logger
}

var _ usecase.Mailer = (*LogMailer)(nil)

// NewLogMailer creates a new LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendConfirmationEmail logs the confirmation code.
func (m *LogMailer) SendConfirmationEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	m.logger.InfoContext(ctx, "confirmation email (not sent)", "to", email, "code", code, "ttl", HumanizeDuration(ttl))
	return nil
}

// SendResetPasswordEmail logs the reset code.
func (m *LogMailer) SendResetPasswordEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	m.logger.InfoContext(ctx, "reset password email (not sent)", "to", email, "code", code, "ttl", HumanizeDuration(ttl))
	return nil
}

// HumanizeDuration renders d as e.g. "15 minutes" or "1 hour 30 minutes".
// Seconds are dropped unless d is shorter than a minute.
func HumanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return plural(int(d/time.Second), "second")
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
