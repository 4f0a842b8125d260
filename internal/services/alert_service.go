// services/alert_service.go
package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"hairsim/internal/config"
)

const (
	GapTransactionRecord    = "transaction_record"
	GapPostGenerationCharge = "post_generation_charge"
)

// ReconciliationGap describes a balance change whose audit trail is incomplete,
// or a finished generation that could not be charged.
type ReconciliationGap struct {
	Reason       string
	AccountID    string
	ClientID     string
	ServiceType  string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Err          error
	OccurredAt   time.Time
}

type IAlertService interface {
	NotifyReconciliationGap(ctx context.Context, gap ReconciliationGap)
}

type mailSender func(to, subject, body string) error

type alertService struct {
	cfg  config.SMTPConfig
	to   string
	log  *zap.Logger
	send mailSender
}

// NewAlertService logs every gap and, when SMTP and a recipient are
// configured, emails it as well.
func NewAlertService(cfg config.SMTPConfig, to string, log *zap.Logger) IAlertService {
	s := &alertService{cfg: cfg, to: to, log: log.Named("alerts")}
	if cfg.Enabled() && to != "" {
		s.send = s.sendSMTP
	}
	return s
}

func (s *alertService) NotifyReconciliationGap(_ context.Context, gap ReconciliationGap) {
	if gap.OccurredAt.IsZero() {
		gap.OccurredAt = time.Now()
	}
	s.log.Error("reconciliation gap",
		zap.String("reason", gap.Reason),
		zap.String("account_id", gap.AccountID),
		zap.String("client_id", gap.ClientID),
		zap.String("service_type", gap.ServiceType),
		zap.String("amount", gap.Amount.StringFixed(2)),
		zap.String("balance_after", gap.BalanceAfter.StringFixed(2)),
		zap.Error(gap.Err),
	)
	if s.send == nil {
		return
	}

	subject := fmt.Sprintf("[hairsim] reconciliation gap: %s", gap.Reason)
	body := renderGap(gap)
	go func() {
		if err := s.send(s.to, subject, body); err != nil {
			s.log.Warn("failed to email reconciliation alert", zap.Error(err))
		}
	}()
}

func renderGap(gap ReconciliationGap) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Reason:        %s\r\n", gap.Reason)
	fmt.Fprintf(&b, "Account:       %s\r\n", gap.AccountID)
	if gap.ClientID != "" {
		fmt.Fprintf(&b, "Client record: %s\r\n", gap.ClientID)
	}
	if gap.ServiceType != "" {
		fmt.Fprintf(&b, "Service:       %s\r\n", gap.ServiceType)
	}
	fmt.Fprintf(&b, "Amount:        %s\r\n", gap.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Balance after: %s\r\n", gap.BalanceAfter.StringFixed(2))
	fmt.Fprintf(&b, "Occurred at:   %s\r\n", gap.OccurredAt.UTC().Format(time.RFC3339))
	if gap.Err != nil {
		fmt.Fprintf(&b, "Error:         %v\r\n", gap.Err)
	}
	return b.String()
}

func (s *alertService) sendSMTP(to, subject, body string) error {
	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = msg.WriteString(fmt.Sprintf(format, a...)) }

	write("From: %s\r\n", s.cfg.From)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", subject)
	write("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: text/plain; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 7bit\r\n\r\n")
	write("%s\r\n", body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if s.cfg.UseSSL {
		// SMTPS, implicit TLS on 465
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if !s.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err = c.StartTLS(tlsCfg); err != nil {
				return err
			}
		}
	}
	if s.cfg.Username != "" {
		if err = c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err = c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg.Bytes()); err != nil {
		return err
	}
	return w.Close()
}
