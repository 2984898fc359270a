package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestSendAppointmentConfirmation(t *testing.T) {
	mock := &mockEmailSender{}
	svc := NewService(mock, "Lakeside Clinic", nil)

	err := svc.SendAppointmentConfirmation(context.Background(), AppointmentConfirmation{
		PatientName:  "Asha Rao",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Menon",
		Date:         "2025-03-14",
		StartTime:    "09:00",
		EndTime:      "13:30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mock.sent))
	}
	msg := mock.sent[0]
	if msg.To != "asha@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Body, "9:00 AM") || !strings.Contains(msg.Body, "1:30 PM") {
		t.Errorf("body should contain 12-hour times, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Lakeside Clinic") {
		t.Errorf("body should name the clinic, got %q", msg.Body)
	}
}

func TestSendAppointmentConfirmation_BadClockRendersNA(t *testing.T) {
	mock := &mockEmailSender{}
	svc := NewService(mock, "Lakeside Clinic", nil)

	err := svc.SendAppointmentConfirmation(context.Background(), AppointmentConfirmation{
		PatientName:  "Asha Rao",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Menon",
		Date:         "2025-03-14",
		StartTime:    "garbage",
		EndTime:      "25:99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(mock.sent[0].Body, "N/A") {
		t.Errorf("unparseable clocks should render as N/A, got %q", mock.sent[0].Body)
	}
}

func TestSendAppointmentConfirmation_NoEmailSkips(t *testing.T) {
	mock := &mockEmailSender{}
	svc := NewService(mock, "Lakeside Clinic", nil)

	err := svc.SendAppointmentConfirmation(context.Background(), AppointmentConfirmation{
		PatientName: "Walk In",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.sent) != 0 {
		t.Errorf("expected no email without an address, got %d", len(mock.sent))
	}
}

func TestSendPaymentReceipt(t *testing.T) {
	mock := &mockEmailSender{}
	svc := NewService(mock, "Lakeside Clinic", nil)

	err := svc.SendPaymentReceipt(context.Background(), PaymentReceipt{
		PatientName:  "Asha Rao",
		PatientEmail: "asha@example.com",
		SaleID:       "sale-42",
		TotalCents:   12550,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mock.sent))
	}
	if !strings.Contains(mock.sent[0].Body, "125.50") {
		t.Errorf("receipt should show the amount, got %q", mock.sent[0].Body)
	}
	if !strings.Contains(mock.sent[0].Body, "sale-42") {
		t.Errorf("receipt should show the sale reference, got %q", mock.sent[0].Body)
	}
}

func TestSendPaymentReceipt_SenderError(t *testing.T) {
	mock := &mockEmailSender{callErr: errors.New("smtp down")}
	svc := NewService(mock, "Lakeside Clinic", nil)

	err := svc.SendPaymentReceipt(context.Background(), PaymentReceipt{
		PatientEmail: "asha@example.com",
		SaleID:       "sale-42",
	})
	if err == nil {
		t.Fatal("expected error when sender fails")
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		100:   "1.00",
		12550: "125.50",
		-250:  "-2.50",
	}
	for cents, want := range cases {
		if got := formatCents(cents); got != want {
			t.Errorf("formatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}
