package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/mail"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

const retryBatchSize = 50

var resultMailTemplate = template.Must(template.New("result").Parse(`<html><body>
<p>Hello {{.RecruiterName}},</p>
<p>{{.Name}} ({{.Email}}) has completed the {{.Bank}} assessment.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th align="left">Status</th><td>{{.Status}}</td></tr>
<tr><th align="left">Result</th><td>{{.Result}}</td></tr>
<tr><th align="left">Score</th><td>{{.Score}}</td></tr>
{{- if .Reason}}
<tr><th align="left">Disqualification</th><td>{{.Reason}}</td></tr>
{{- end}}
</table>
</body></html>`))

type resultMail struct {
	RecruiterName string
	Name          string
	Email         string
	Bank          string
	Status        string
	Result        string
	Score         string
	Reason        string
}

type resultNotifier struct {
	repo      repositories.Repository
	mailer    mail.Sender
	publisher events.EventPublisher
	topic     string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewResultNotifier(repo repositories.Repository, mailer mail.Sender, publisher events.EventPublisher, topic string, timeout time.Duration, logger *slog.Logger) ResultNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &resultNotifier{
		repo:      repo,
		mailer:    mailer,
		publisher: publisher,
		topic:     topic,
		timeout:   timeout,
		logger:    logger,
	}
}

// Notify mails the verdict to the recruiter and publishes a result event.
// Failed mails go to the outbox for RetryPending.
func (n *resultNotifier) Notify(ctx context.Context, c *models.Candidate) {
	delivered := false
	if c.RecruiterEmail == "" {
		n.logger.Info("No recruiter contact, result mail skipped", "candidate_id", c.ID)
	} else {
		delivered = n.mailResult(ctx, c)
	}

	completed := time.Now().UTC()
	if c.CompletedAt != nil {
		completed = *c.CompletedAt
	}
	event := events.NewEvent(events.TypeResultRecorded, events.ResultRecordedEvent{
		CandidateID:    c.ID,
		Email:          c.Email,
		Program:        c.Program,
		Project:        c.Project,
		Status:         c.Status,
		Result:         c.Result,
		Score:          c.Score,
		Disqualified:   c.VideoLink != "",
		RecruiterEmail: c.RecruiterEmail,
		MailDelivered:  delivered,
		CompletedAt:    completed,
	})
	if err := n.publish(ctx, event); err != nil {
		n.logger.Error("Failed to publish result event", "candidate_id", c.ID, "error", err)
	}
}

func (n *resultNotifier) mailResult(ctx context.Context, c *models.Candidate) bool {
	subject := fmt.Sprintf("Assessment result: %s - %s", c.Name, c.Status)
	body, err := renderResultMail(c)
	if err != nil {
		n.logger.Error("Failed to render result mail", "candidate_id", c.ID, "error", err)
		return false
	}

	if err := n.send(ctx, c.RecruiterEmail, subject, body); err != nil {
		n.logger.Error("Result mail failed, queued for retry",
			"candidate_id", c.ID,
			"recipient", c.RecruiterEmail,
			"error", err)

		failure := &models.NotificationFailure{
			CandidateID: c.ID,
			Recipient:   c.RecruiterEmail,
			Subject:     subject,
			Body:        body,
			Attempts:    1,
			LastError:   err.Error(),
		}
		if err := n.repo.Notification().RecordFailure(ctx, failure); err != nil {
			n.logger.Error("Failed to record notification failure", "candidate_id", c.ID, "error", err)
		}
		return false
	}

	n.logger.Info("Result mail sent", "candidate_id", c.ID, "recipient", c.RecruiterEmail)
	return true
}

// RetryPending resends undelivered result mails and returns how many went out.
func (n *resultNotifier) RetryPending(ctx context.Context) (int, error) {
	pending, err := n.repo.Notification().ListPending(ctx, models.MaxNotificationAttempts, retryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	delivered := 0
	for _, p := range pending {
		if err := n.send(ctx, p.Recipient, p.Subject, p.Body); err != nil {
			n.logger.Warn("Notification retry failed",
				"notification_id", p.ID,
				"attempts", p.Attempts+1,
				"error", err)
			if err := n.repo.Notification().MarkAttempt(ctx, p.ID, err.Error()); err != nil {
				n.logger.Error("Failed to update notification attempt", "notification_id", p.ID, "error", err)
			}
			if p.Attempts+1 >= models.MaxNotificationAttempts {
				n.publishGaveUp(ctx, p, err)
			}
			continue
		}
		if err := n.repo.Notification().MarkDelivered(ctx, p.ID); err != nil {
			n.logger.Error("Failed to mark notification delivered", "notification_id", p.ID, "error", err)
			continue
		}
		delivered++
	}

	if len(pending) > 0 {
		n.logger.Info("Notification retry finished", "pending", len(pending), "delivered", delivered)
	}
	return delivered, nil
}

// publishGaveUp reports a mail that will not be retried again.
func (n *resultNotifier) publishGaveUp(ctx context.Context, p *models.NotificationFailure, cause error) {
	event := events.NewEvent(events.TypeNotificationFailed, events.NotificationFailedEvent{
		NotificationID: p.ID,
		CandidateID:    p.CandidateID,
		Recipient:      p.Recipient,
		Attempts:       p.Attempts + 1,
		LastError:      cause.Error(),
	})
	if err := n.publish(ctx, event); err != nil {
		n.logger.Error("Failed to publish notification failure", "notification_id", p.ID, "error", err)
	}
}

func (n *resultNotifier) publish(ctx context.Context, event *events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.publisher.Publish(ctx, n.topic, event)
}

func (n *resultNotifier) send(ctx context.Context, to, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.mailer.Send(ctx, to, subject, body)
}

func renderResultMail(c *models.Candidate) (string, error) {
	var buf bytes.Buffer
	err := resultMailTemplate.Execute(&buf, resultMail{
		RecruiterName: c.RecruiterName,
		Name:          c.Name,
		Email:         c.Email,
		Bank:          BankName(c.Program, c.Project),
		Status:        c.Status,
		Result:        c.Result,
		Score:         c.Score,
		Reason:        c.VideoLink,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
