package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "classwatch/internal/errors"
	"classwatch/internal/shared/testutil"
	"classwatch/pkg/contracts/domain"
)

type recordingTransport struct {
	sent []*Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg *Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNotifier_Notify(t *testing.T) {
	transport := &recordingTransport{}
	notifier := NewNotifier(transport, "from@example.com", "to@example.com", "Prefix", discardLogger())

	result := &domain.ReportResult{
		Classes: &domain.Dataset{
			Columns: []string{"name"},
			Records: []domain.ClassRecord{{Values: []string{"A1"}}},
		},
		ReferenceDate: refDate,
	}
	attachment := &domain.Attachment{Filename: "report_2025-06-01.xlsx", Data: []byte("x")}

	require.NoError(t, notifier.Notify(context.Background(), result, attachment))
	require.Len(t, transport.sent, 1)
	assert.Same(t, attachment, transport.sent[0].Attachment)
	assert.Equal(t, "to@example.com", transport.sent[0].To)
}

func TestNotifier_NotifyFailureNotRetried(t *testing.T) {
	transport := &recordingTransport{err: apperrors.NewAuthError(errors.New("535 rejected"))}
	logger, logs := testutil.NewTestLogger(t)
	notifier := NewNotifier(transport, "from@example.com", "to@example.com", "Prefix", logger)

	err := notifier.Notify(context.Background(), &domain.ReportResult{ReferenceDate: refDate}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
	assert.Len(t, transport.sent, 1)
	rec := testutil.AssertLogged(t, logs, slog.LevelError, "Report email failed")
	assert.Equal(t, "to@example.com", rec.Attrs["to"])
}

func TestConsoleTransport_Send(t *testing.T) {
	var out bytes.Buffer
	notifier := NewNotifier(NewConsoleTransport(&out), "from@example.com", "to@example.com", "Prefix", discardLogger())

	require.NoError(t, notifier.Notify(context.Background(), &domain.ReportResult{ReferenceDate: refDate}, nil))

	printed := out.String()
	assert.Contains(t, printed, "=== EMAIL WOULD BE SENT ===")
	assert.Contains(t, printed, "Subject: Prefix - 01/06/2025")
	assert.Contains(t, printed, "No classes need attention.")
	assert.Contains(t, printed, "Attachment: none")
	assert.Contains(t, printed, "=== END EMAIL ===")
}
