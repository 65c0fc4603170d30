package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"classwatch/internal/exporter"
	"classwatch/pkg/contracts/domain"
)

// Message is one report email. It lives only for the duration of a send.
type Message struct {
	From       string
	To         string
	Subject    string
	Body       string
	Date       time.Time
	Attachment *domain.Attachment
}

// Subject builds the subject line for a reference date.
func Subject(prefix string, ref time.Time) string {
	return fmt.Sprintf("%s - %s", prefix, exporter.DisplayDate(ref))
}

// EmptyBody is the fixed notice sent when no class matched.
func EmptyBody(ref time.Time) string {
	return fmt.Sprintf("Today is %s.\nNo classes need attention.", exporter.DisplayDate(ref))
}

// AttachmentBody is the text sent alongside the report file.
func AttachmentBody(ref time.Time, filename string) string {
	return fmt.Sprintf("Today is %s.\nThe list of classes needing attention is attached (%s).",
		exporter.DisplayDate(ref), filename)
}

// Compose builds the report email. The attachment is included if and only if
// the result is non-empty.
func Compose(result *domain.ReportResult, attachment *domain.Attachment, from, to, subjectPrefix string) *Message {
	msg := &Message{
		From:    from,
		To:      to,
		Subject: Subject(subjectPrefix, result.ReferenceDate),
		Date:    time.Now(),
	}
	if result.Empty() || attachment == nil {
		msg.Body = EmptyBody(result.ReferenceDate)
		return msg
	}
	msg.Body = AttachmentBody(result.ReferenceDate, attachment.Filename)
	msg.Attachment = attachment
	return msg
}

// Bytes renders the message in RFC 5322 form. With an attachment the body is
// multipart/mixed; the file part is base64 in 76-character lines.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", m.To)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	if !m.Date.IsZero() {
		writeHeader(&buf, "Date", m.Date.Format(time.RFC1123Z))
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	if m.Attachment == nil {
		writeHeader(&buf, "Content-Type", "text/plain; charset=utf-8")
		writeHeader(&buf, "Content-Transfer-Encoding", "8bit")
		buf.WriteString("\r\n")
		buf.WriteString(normalizeNewlines(m.Body))
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%s", writer.Boundary()))
	buf.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textHeader.Set("Content-Transfer-Encoding", "8bit")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(normalizeNewlines(m.Body))); err != nil {
		return nil, err
	}

	att := m.Attachment
	contentType := att.ContentType
	if contentType == "" {
		contentType = exporter.AttachmentContentType
	}
	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", quotedMediaType(contentType, "name", att.Filename))
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attHeader.Set("Content-Disposition", quotedMediaType("attachment", "filename", att.Filename))

	attPart, err := writer.CreatePart(attHeader)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(att.Data)
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		if _, err := attPart.Write([]byte(encoded[i:end] + "\r\n")); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// quotedMediaType always quotes an ASCII parameter value; mail clients parse
// the quoted form more reliably than a bare token. Other values use RFC 2231.
func quotedMediaType(mediaType, param, value string) string {
	for _, r := range value {
		if r < 0x20 || r > 0x7e {
			return mime.FormatMediaType(mediaType, map[string]string{param: value})
		}
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`%s; %s="%s"`, mediaType, param, escaped)
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(sanitizeHeader(value))
	buf.WriteString("\r\n")
}

// sanitizeHeader drops line breaks so values cannot inject headers.
func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
