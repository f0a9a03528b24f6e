package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pharmia/backend/internal/mailer"
	"github.com/pharmia/backend/pkg/queue"
)

// EmailProcessor drains the email queue and delivers confirmation mail.
type EmailProcessor struct {
	mailer *mailer.Mailer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(m *mailer.Mailer, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{mailer: m, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	subject := fmt.Sprintf("Inscription confirmée : %s", payload.WebinarTitle)
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre inscription au webinaire \"%s\" du %s est confirmée.\n\nÀ bientôt,\nL'équipe PharmIA",
		payload.RecipientName, payload.WebinarTitle, payload.WebinarDate.Format("02/01/2006 15:04"),
	)
	if err := p.mailer.Send(payload.RecipientEmail, subject, body); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	p.logger.Info("confirmation email sent",
		zap.String("job_id", job.ID),
		zap.String("to", payload.RecipientEmail),
		zap.String("webinar_id", payload.WebinarID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
