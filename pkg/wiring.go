package pkg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/config"
	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/mail"
	"github.com/highspring-tester/hat/internal/repositories/casdoor"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/validator"
)

func NewIssuer(cfg *config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, auth.TokenTTLs{
		Admin: cfg.Auth.AdminTokenTTL,
		Exam:  cfg.Auth.ExamTokenTTL,
	})
}

// NewMailer sends through Brevo when an API key is configured, otherwise mails are only logged.
func NewMailer(cfg *config.Config, logger *slog.Logger) mail.Sender {
	if cfg.Mail.BrevoAPIKey == "" {
		logger.Warn("BREVO_API_KEY not set, mails will be logged only")
		return mail.NewLogSender(logger)
	}
	return mail.NewBrevoSender(mail.BrevoConfig{
		APIKey:      cfg.Mail.BrevoAPIKey,
		SenderEmail: cfg.Mail.SenderEmail,
		SenderName:  cfg.Mail.SenderName,
		Timeout:     cfg.Timeouts.Mail,
	}, logger)
}

// NewPublisher returns a Kafka publisher when brokers are configured. Without
// brokers events stay in process and are written to the log until ctx ends.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.ResultTopic)
		return pub, nil
	}

	pub, ch := events.NewChannelEventPublisher(logger)
	if err := events.LogEvents(ctx, ch, cfg.Kafka.ResultTopic, logger); err != nil {
		pub.Close()
		return nil, err
	}
	return pub, nil
}

// NewSSOVerifier returns nil when Casdoor is not configured.
func NewSSOVerifier(cfg *config.Config) services.SSOVerifier {
	if !cfg.Casdoor.Enabled() {
		return nil
	}
	return casdoor.NewSSOVerifier(casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
	})
}

// NewServiceManager wires and initializes every service on top of store.
func NewServiceManager(ctx context.Context, cfg *config.Config, store *Store, logger *slog.Logger) (services.ServiceManager, error) {
	publisher, err := NewPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sm := services.NewServiceManager(services.Dependencies{
		Repo:      store.Repository(),
		Issuer:    NewIssuer(cfg),
		Mailer:    NewMailer(cfg, logger),
		Publisher: publisher,
		SSO:       NewSSOVerifier(cfg),
		Logger:    logger,
		Validator: validator.New(),
	}, services.ServiceManagerConfig{
		ExposeAnswers:  cfg.Exam.ExposeAnswers,
		ResultTopic:    cfg.Kafka.ResultTopic,
		MailTimeout:    cfg.Timeouts.Mail,
		DefaultTimeout: cfg.Timeouts.Database,
	})
	if err := sm.Initialize(ctx); err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return sm, nil
}
