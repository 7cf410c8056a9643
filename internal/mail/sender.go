// Package mail はトランザクションメールの送信を提供する。
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
)

// resetTemplate はパスワードリセットメールの本文テンプレート。
var resetTemplate = template.Must(template.New("password_reset").Parse(`<h2>パスワードのリセット</h2>
<p>{{.Name}} さん</p>
<p>パスワードのリセットが要求されました。以下のリンクは1時間有効です。</p>
<p><a href="{{.ResetURL}}">パスワードをリセットする</a></p>
<p>リンクが開けない場合は、次のURLをブラウザに貼り付けてください:</p>
<p>{{.ResetURL}}</p>
<p>このメールに心当たりがない場合は無視してください。</p>
`))

// Sender はパスワードリセットメールの送信インターフェース。
type Sender interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error
}

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender はSMTP経由でメールを送信するSender実装。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

var _ Sender = (*SMTPSender)(nil)

// SendPasswordReset はリセットURL入りのHTMLメールを送信する。
func (s *SMTPSender) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Name     string
		ResetURL string
	}{Name: toName, ResetURL: resetURL})
	if err != nil {
		return fmt.Errorf("メール本文の生成に失敗しました: %w", err)
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.config.From + "\r\n")
	msg.WriteString("To: " + toEmail + "\r\n")
	msg.WriteString("Subject: Password Reset\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := s.config.Host + ":" + s.config.Port
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{toEmail}, []byte(msg.String())); err != nil {
		return fmt.Errorf("メールの送信に失敗しました: %w", err)
	}

	slog.Info("password reset mail sent", slog.String("to", toEmail))
	return nil
}

// LogSender は実際には送信せず、ログに記録するだけのSender実装。
// MAIL_HOSTが未設定の開発環境で使う。
type LogSender struct{}

var _ Sender = (*LogSender)(nil)

// SendPasswordReset はリセットURLをログに出力する。
func (s *LogSender) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error {
	slog.Info("password reset mail (log only)",
		slog.String("to", toEmail),
		slog.String("reset_url", resetURL),
	)
	return nil
}
