package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/metrics"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"golang.org/x/sync/errgroup"
)

const customerEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h1>Thanks for your order!</h1>
  <p>We received your design request <strong>{{.DesignCode}}</strong> for <strong>{{.ProductTitle}}</strong>.</p>
  {{if .FormattedAmount}}<p>Amount paid: {{.FormattedAmount}}{{if .DiscountCode}} (code {{.DiscountCode}}){{end}}</p>{{end}}
  {{if .StyleName}}<p>Style: {{.StyleName}}</p>{{end}}
  <h2>Your answers</h2>
  <table cellpadding="6" style="border-collapse: collapse;">
  {{range .Items}}
    <tr>
      <td style="vertical-align: top;"><strong>{{.Question}}</strong></td>
      <td>
        {{if .Lines}}{{.Answer}}<ul>{{range .Lines}}<li>{{.Label}}: {{.Value}}</li>{{end}}</ul>
        {{else if .FileURL}}Image uploaded: <a href="{{.FileURL}}">{{.FileURL}}</a>
        {{else}}{{.Answer}}{{end}}
      </td>
    </tr>
  {{end}}
  </table>
  <p>Our designers will be in touch at {{.Email}} with your first proof.</p>
</body>
</html>`

const customerEmailText = `Thanks for your order!

Design request: {{.DesignCode}}
Product: {{.ProductTitle}}
{{if .FormattedAmount}}Amount paid: {{.FormattedAmount}}{{if .DiscountCode}} (code {{.DiscountCode}}){{end}}
{{end}}{{if .StyleName}}Style: {{.StyleName}}
{{end}}
Your answers:
{{range .Items}}
{{.Question}}
  {{.Answer}}
{{range .Lines}}  - {{.Label}}: {{.Value}}
{{end}}{{end}}
Our designers will be in touch at {{.Email}} with your first proof.
`

const adminEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h1>New paid design request {{.DesignCode}}</h1>
  <p>Customer: {{.Email}}<br>Product: {{.ProductTitle}}<br>Status: {{.Status}}
  {{if .FormattedAmount}}<br>Amount: {{.FormattedAmount}}{{end}}{{if .DiscountCode}}<br>Discount code: {{.DiscountCode}}{{end}}
  {{if .StyleName}}<br>Style: {{.StyleName}}{{end}}</p>
  <ul>
  {{range .Items}}
    <li><strong>{{.Question}}</strong>: {{if .FileURL}}<a href="{{.FileURL}}">Image uploaded</a>{{else}}{{.Answer}}{{end}}
      {{if .Lines}}<ul>{{range .Lines}}<li>{{.Label}}: {{.Value}}</li>{{end}}</ul>{{end}}
    </li>
  {{end}}
  </ul>
</body>
</html>`

const adminEmailText = `New paid design request {{.DesignCode}}

Customer: {{.Email}}
Product: {{.ProductTitle}}
Status: {{.Status}}
{{if .FormattedAmount}}Amount: {{.FormattedAmount}}
{{end}}{{if .DiscountCode}}Discount code: {{.DiscountCode}}
{{end}}{{if .StyleName}}Style: {{.StyleName}}
{{end}}
{{range .Items}}- {{.Question}}: {{.Answer}}
{{range .Lines}}    {{.Label}}: {{.Value}}
{{end}}{{end}}`

var (
	customerHTMLTmpl = htmltemplate.Must(htmltemplate.New("customer_html").Parse(customerEmailHTML))
	customerTextTmpl = texttemplate.Must(texttemplate.New("customer_text").Parse(customerEmailText))
	adminHTMLTmpl    = htmltemplate.Must(htmltemplate.New("admin_html").Parse(adminEmailHTML))
	adminTextTmpl    = texttemplate.Must(texttemplate.New("admin_text").Parse(adminEmailText))
)

type NotificationConfig struct {
	From       string
	AdminEmail string
}

// NotificationService sends the customer and admin confirmation emails
type NotificationService interface {
	ConfirmationSender
	// Render builds both messages without sending them
	Render(ctx context.Context, requestID uuid.UUID) (customer Email, admin Email, err error)
}

type notificationService struct {
	requests repositories.DesignRequestRepository
	builder  *SummaryBuilder
	mailer   Mailer
	cfg      NotificationConfig
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewNotificationService(
	requests repositories.DesignRequestRepository,
	builder *SummaryBuilder,
	mailer Mailer,
	cfg NotificationConfig,
	m *metrics.Metrics,
	baseLog *logger.Logger,
) NotificationService {
	return &notificationService{
		requests: requests,
		builder:  builder,
		mailer:   mailer,
		cfg:      cfg,
		metrics:  m,
		log:      baseLog.With("service", "NotificationService"),
	}
}

func (s *notificationService) Render(ctx context.Context, requestID uuid.UUID) (Email, Email, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Email{}, Email{}, ErrRequestNotFound
		}
		return Email{}, Email{}, fmt.Errorf("load design request: %w", err)
	}
	summary, err := s.builder.Build(ctx, req)
	if err != nil {
		return Email{}, Email{}, err
	}

	customer := Email{
		From:    s.cfg.From,
		To:      []string{summary.Email},
		Subject: fmt.Sprintf("Your sticker design request %s", summary.DesignCode),
	}
	if customer.HTML, err = renderHTML(customerHTMLTmpl, summary); err != nil {
		return Email{}, Email{}, err
	}
	if customer.Text, err = renderText(customerTextTmpl, summary); err != nil {
		return Email{}, Email{}, err
	}

	admin := Email{
		From:    s.cfg.From,
		To:      []string{s.cfg.AdminEmail},
		Subject: fmt.Sprintf("New design request %s (%s)", summary.DesignCode, summary.ProductTitle),
	}
	if admin.HTML, err = renderHTML(adminHTMLTmpl, summary); err != nil {
		return Email{}, Email{}, err
	}
	if admin.Text, err = renderText(adminTextTmpl, summary); err != nil {
		return Email{}, Email{}, err
	}
	return customer, admin, nil
}

// SendConfirmation sends both messages concurrently. A failure on one does
// not cancel the other.
func (s *notificationService) SendConfirmation(ctx context.Context, requestID uuid.UUID) error {
	customer, admin, err := s.Render(ctx, requestID)
	if err != nil {
		return err
	}

	var g errgroup.Group
	if len(customer.To) > 0 && customer.To[0] != "" {
		g.Go(func() error { return s.send(ctx, "customer", requestID, customer) })
	} else {
		s.log.Warn("Design request has no email, skipping customer confirmation", "design_request_id", requestID.String())
	}
	if s.cfg.AdminEmail != "" {
		g.Go(func() error { return s.send(ctx, "admin", requestID, admin) })
	}
	return g.Wait()
}

func (s *notificationService) send(ctx context.Context, recipient string, requestID uuid.UUID, email Email) error {
	id, err := s.mailer.Send(ctx, email)
	if err != nil {
		s.metrics.Email(recipient, "error")
		s.log.Error("Failed to send email", "recipient", recipient, "design_request_id", requestID.String(), "error", err)
		return fmt.Errorf("send %s email: %w", recipient, err)
	}
	s.metrics.Email(recipient, "sent")
	s.log.Info("Email sent", "recipient", recipient, "design_request_id", requestID.String(), "email_id", id)
	return nil
}

func renderHTML(t *htmltemplate.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func renderText(t *texttemplate.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
