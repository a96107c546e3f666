package exporter

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

type TargetSummary struct {
	Target     string
	PostsIn    int
	PostsFinal int
	OutputFile string
}

// RenderSummary formats per-target run results as a text table.
func RenderSummary(summaries []TargetSummary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Target", "Posts In", "Posts Generated", "Output"})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Target, s.PostsIn, s.PostsFinal, s.OutputFile})
	}
	return t.Render()
}

// SendRunReport emails the run summary. Called only when an SMTP block
// is configured.
func (s Service) SendRunReport(ctx context.Context, cfg SmtpConfig, summaries []TargetSummary) error {
	ctx, span := tracer.Start(ctx, "SendRunReport")
	defer span.End()

	runId, err := random.String(8)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate run id")
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Threadsmith <%s>", cfg.EmailAddress)
	mail.To = cfg.Recipients
	mail.Subject = fmt.Sprintf("Threadsmith run report (%s)", runId)
	mail.Text = []byte(fmt.Sprintf(
		"Run %s finished.\n\n%s\n",
		runId, RenderSummary(summaries),
	))

	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	err = mail.Send(addr, smtp.PlainAuth("", cfg.EmailAddress, cfg.Password, cfg.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send report email")
		return err
	}
	return nil
}
