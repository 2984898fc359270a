package posload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicware/clinic-pos/internal/inventory"
	"github.com/clinicware/clinic-pos/internal/observability/metrics"
	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

var tracer = otel.Tracer("clinicpos/posload")

// ErrAlreadyPaid rejects loading a prescription whose authoritative record is
// already settled.
var ErrAlreadyPaid = errors.New("posload: prescription already paid")

// ErrAlreadyLoaded rejects loading a prescription that is already handed to
// the POS and awaiting payment confirmation.
var ErrAlreadyLoaded = errors.New("posload: prescription already loaded")

type prescriptionStore interface {
	GetForOrg(ctx context.Context, orgID, id string) (*prescriptions.Prescription, error)
	MarkPaidThroughPOS(ctx context.Context, orgID, id string) error
}

type inventoryStore interface {
	GetItem(ctx context.Context, orgID, id string) (*inventory.Item, error)
	ListBatches(ctx context.Context, itemID string) ([]inventory.Batch, error)
}

type saleStore interface {
	InsertSale(ctx context.Context, sale *Sale) error
}

type eventRecorder interface {
	Insert(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// BatchAllocation assigns part of a medicine line to one stock batch.
type BatchAllocation struct {
	BatchID  string `json:"batch_id"`
	BatchNo  string `json:"batch_no"`
	Quantity int    `json:"quantity"`
}

// SaleLine is one medicine resolved for a POS sale.
type SaleLine struct {
	MedicineName   string            `json:"medicine_name"`
	Source         string            `json:"source"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	Allocations    []BatchAllocation `json:"allocations,omitempty"`
	Shortfall      int               `json:"shortfall,omitempty"`
}

// Sale is a POS sale created from a prescription.
type Sale struct {
	ID             string     `json:"id"`
	OrgID          string     `json:"org_id"`
	AppointmentID  string     `json:"appointment_id"`
	PrescriptionID string     `json:"prescription_id"`
	Lines          []SaleLine `json:"lines"`
	TotalCents     int64      `json:"total_cents"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Service loads prescriptions into POS sales with stock-aware medicine
// resolution and tracks the optimistic loaded state until payment confirms.
type Service struct {
	prescriptions prescriptionStore
	inventory     inventoryStore
	sales         saleStore
	cache         *LoadedCache
	events        eventRecorder
	metrics       *metrics.POSMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// NewService creates the POS loading service.
func NewService(prescs prescriptionStore, inv inventoryStore, sales saleStore, cache *LoadedCache, events eventRecorder, m *metrics.POSMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		prescriptions: prescs,
		inventory:     inv,
		sales:         sales,
		cache:         cache,
		events:        events,
		metrics:       m,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// LoadPrescription resolves a prescription into a POS sale.
//
// Only inventory-sourced medicines consume stock; written medicines become
// zero-priced display lines. Stock is drawn from batches with positive
// quantity and a future expiry, earliest expiry first. Insufficient stock is
// reported per line as a shortfall and does not abort the load.
func (s *Service) LoadPrescription(ctx context.Context, orgID, prescriptionID string) (*Sale, error) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "posload.load_prescription")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicpos.org_id", orgID),
		attribute.String("clinicpos.prescription_id", prescriptionID),
	)

	presc, err := s.prescriptions.GetForOrg(ctx, orgID, prescriptionID)
	if err != nil {
		s.observe("lookup_failed", start)
		return nil, fmt.Errorf("posload: load prescription: %w", err)
	}
	if presc.IsPaid {
		s.cache.Confirm(ctx, orgID, prescriptionID)
		s.observe("rejected_paid", start)
		return nil, ErrAlreadyPaid
	}
	switch s.cache.State(ctx, orgID, prescriptionID) {
	case StateLocallyLoaded:
		s.observe("rejected_loaded", start)
		return nil, ErrAlreadyLoaded
	case StateConfirmedPaid:
		s.observe("rejected_paid", start)
		return nil, ErrAlreadyPaid
	}

	now := s.now()
	sale := &Sale{
		ID:             uuid.NewString(),
		OrgID:          orgID,
		AppointmentID:  presc.AppointmentID,
		PrescriptionID: presc.ID,
		CreatedAt:      now,
	}

	for _, med := range presc.Medicines {
		line, err := s.resolveLine(ctx, orgID, med, now)
		if err != nil {
			s.observe("resolve_failed", start)
			return nil, err
		}
		sale.TotalCents += line.UnitPriceCents * int64(line.Quantity-line.Shortfall)
		sale.Lines = append(sale.Lines, line)
	}

	if presc.AppointmentAmountCents != nil {
		sale.TotalCents += *presc.AppointmentAmountCents
	}

	if err := s.sales.InsertSale(ctx, sale); err != nil {
		s.observe("insert_failed", start)
		return nil, fmt.Errorf("posload: record sale: %w", err)
	}

	if err := s.cache.MarkLoaded(ctx, orgID, prescriptionID); err != nil {
		s.observe("rejected_paid", start)
		return nil, err
	}

	if s.events != nil {
		if _, err := s.events.Insert(ctx, orgID, "pos.sale.loaded", sale); err != nil {
			s.logger.Error("posload: outbox insert failed", "error", err, "sale_id", sale.ID)
		}
	}

	s.logger.Info("prescription loaded to POS",
		"org_id", orgID,
		"prescription_id", prescriptionID,
		"sale_id", sale.ID,
		"total_cents", sale.TotalCents,
	)
	s.observe("loaded", start)
	return sale, nil
}

// ConfirmPayment records the authoritative payment for a loaded prescription
// and promotes its cache entry to the terminal state.
func (s *Service) ConfirmPayment(ctx context.Context, orgID, prescriptionID string) error {
	ctx, span := tracer.Start(ctx, "posload.confirm_payment")
	defer span.End()
	span.SetAttributes(attribute.String("clinicpos.prescription_id", prescriptionID))

	if err := s.prescriptions.MarkPaidThroughPOS(ctx, orgID, prescriptionID); err != nil {
		return fmt.Errorf("posload: confirm payment: %w", err)
	}
	s.cache.Confirm(ctx, orgID, prescriptionID)

	if s.events != nil {
		payload := map[string]string{"prescription_id": prescriptionID}
		if _, err := s.events.Insert(ctx, orgID, "prescription.paid", payload); err != nil {
			s.logger.Error("posload: outbox insert failed", "error", err, "prescription_id", prescriptionID)
		}
	}
	return nil
}

func (s *Service) resolveLine(ctx context.Context, orgID string, med prescriptions.Medicine, now time.Time) (SaleLine, error) {
	line := SaleLine{
		MedicineName: med.Name,
		Source:       med.Source,
		Quantity:     med.Quantity,
	}
	if med.Source != prescriptions.SourceInventory || med.InventoryItemID == "" {
		// Written medicines carry no stock or price.
		return line, nil
	}

	item, err := s.inventory.GetItem(ctx, orgID, med.InventoryItemID)
	if err != nil {
		return SaleLine{}, fmt.Errorf("posload: resolve item for %q: %w", med.Name, err)
	}
	line.UnitPriceCents = item.UnitPriceCents

	batches, err := s.inventory.ListBatches(ctx, item.ID)
	if err != nil {
		return SaleLine{}, fmt.Errorf("posload: list batches for %q: %w", med.Name, err)
	}

	remaining := med.Quantity
	for _, b := range inventory.Available(batches, now) {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		line.Allocations = append(line.Allocations, BatchAllocation{
			BatchID:  b.ID,
			BatchNo:  b.BatchNo,
			Quantity: take,
		})
		remaining -= take
	}
	line.Shortfall = remaining
	return line, nil
}

func (s *Service) observe(status string, start time.Time) {
	s.metrics.ObserveLoad(status, s.now().Sub(start).Seconds())
}
