package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	apperrors "classwatch/internal/errors"
)

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig holds the submission endpoint and credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the default client TLS settings; ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTPTransport submits mail over an implicitly encrypted (SMTPS) session.
// Each Send opens one connection, authenticates and delivers to one recipient.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTPS transport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Send delivers msg exactly once. Credential rejection is an AuthError; every
// other failure is a DeliveryError.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return apperrors.NewDeliveryError("compose", err)
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	tlsConfig := t.tlsConfig()

	dialer := &tls.Dialer{Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return apperrors.NewDeliveryError("connect", err).WithContext("addr", addr)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock protocol reads if the caller cancels
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	client, err := smtp.NewClient(conn, tlsConfig.ServerName)
	if err != nil {
		return apperrors.NewDeliveryError("greeting", err)
	}
	defer client.Close()

	ok, _ := client.Extension("AUTH")
	if err != nil {
		return apperrors.NewDeliveryError("ehlo", err)
	}
	if !ok {
		return apperrors.NewDeliveryError("auth", errors.New("server does not support AUTH"))
	}
	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, tlsConfig.ServerName)
	if err := client.Auth(auth); err != nil {
		if credentialsRejected(err) {
			return apperrors.NewAuthError(err)
		}
		return apperrors.NewDeliveryError("auth", err)
	}

	if err := client.Mail(msg.From); err != nil {
		return apperrors.NewDeliveryError("mail", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return apperrors.NewDeliveryError("rcpt", err)
	}

	w, err := client.Data()
	if err != nil {
		return apperrors.NewDeliveryError("data", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return apperrors.NewDeliveryError("data", err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewDeliveryError("data", err)
	}

	// the server has accepted the message; a failed QUIT does not undo that
	_ = client.Quit()
	return nil
}

// credentialsRejected reports whether the server refused the credentials
// themselves, as opposed to the session failing during AUTH.
func credentialsRejected(err error) bool {
	var protoErr *textproto.Error
	if !errors.As(err, &protoErr) {
		return false
	}
	switch protoErr.Code {
	case 530, 534, 535:
		return true
	}
	return false
}

// Addr returns host:port of the submission endpoint.
func (t *SMTPTransport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.cfg.TLSConfig != nil {
		cfg = t.cfg.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = t.cfg.Host
	}
	return cfg
}

var _ Transport = (*SMTPTransport)(nil)

// String describes the transport for logs.
func (t *SMTPTransport) String() string {
	return fmt.Sprintf("smtps://%s", t.Addr())
}
