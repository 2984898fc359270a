package notify

import (
	"context"
	"fmt"

	"github.com/clinicware/clinic-pos/internal/sessions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// Service sends patient-facing emails for appointment and payment events.
type Service struct {
	email      EmailSender
	clinicName string
	logger     *logging.Logger
}

// NewService creates a notification service. A nil sender disables sending.
func NewService(email EmailSender, clinicName string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = "the clinic"
	}
	return &Service{email: email, clinicName: clinicName, logger: logger}
}

// AppointmentConfirmation holds the details rendered into a confirmation email.
type AppointmentConfirmation struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	Date         string // YYYY-MM-DD
	StartTime    string // 24h HH:MM
	EndTime      string // 24h HH:MM
}

// SendAppointmentConfirmation emails the patient their session window. Clock
// values are rendered in 12-hour form, or N/A when unparseable.
func (s *Service) SendAppointmentConfirmation(ctx context.Context, c AppointmentConfirmation) error {
	if s.email == nil {
		s.logger.Debug("notify: no email sender configured, skipping confirmation")
		return nil
	}
	if c.PatientEmail == "" {
		s.logger.Debug("notify: patient has no email, skipping confirmation")
		return nil
	}

	start := sessions.FormatClock(c.StartTime)
	end := sessions.FormatClock(c.EndTime)

	msg := EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed for %s", c.Date),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour appointment with %s at %s is confirmed for %s, between %s and %s.\n\nPlease arrive 10 minutes early.\n",
			c.PatientName, c.DoctorName, s.clinicName, c.Date, start, end),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: appointment confirmation: %w", err)
	}
	return nil
}

// PaymentReceipt holds the details rendered into a receipt email.
type PaymentReceipt struct {
	PatientName  string
	PatientEmail string
	SaleID       string
	TotalCents   int64
}

// SendPaymentReceipt emails a receipt after a POS payment is confirmed.
func (s *Service) SendPaymentReceipt(ctx context.Context, r PaymentReceipt) error {
	if s.email == nil || r.PatientEmail == "" {
		return nil
	}

	msg := EmailMessage{
		To:      r.PatientEmail,
		ToName:  r.PatientName,
		Subject: fmt.Sprintf("Receipt from %s", s.clinicName),
		Body: fmt.Sprintf(
			"Hi %s,\n\nThank you for your payment of %s at %s.\nReference: %s\n",
			r.PatientName, formatCents(r.TotalCents), s.clinicName, r.SaleID),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: payment receipt: %w", err)
	}
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
