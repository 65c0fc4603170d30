package mailer

import (
	"context"
	"log/slog"

	"classwatch/pkg/contracts/domain"
)

// Notifier composes the report email and hands it to a transport once.
type Notifier struct {
	transport     Transport
	from          string
	to            string
	subjectPrefix string
	logger        *slog.Logger
}

// NewNotifier creates a notifier sending from one address to exactly one recipient.
func NewNotifier(transport Transport, from, to, subjectPrefix string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		transport:     transport,
		from:          from,
		to:            to,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// Notify sends the report. There is no retry: a failure is returned to the caller.
func (n *Notifier) Notify(ctx context.Context, result *domain.ReportResult, attachment *domain.Attachment) error {
	msg := Compose(result, attachment, n.from, n.to, n.subjectPrefix)

	attrs := []any{
		slog.String("to", n.to),
		slog.String("subject", msg.Subject),
		slog.Bool("attachment", msg.Attachment != nil),
	}

	if err := n.transport.Send(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "Report email failed", append(attrs, slog.String("error", err.Error()))...)
		return err
	}

	n.logger.InfoContext(ctx, "Report email sent", attrs...)
	return nil
}
