package stock

import (
	"context"
	"io"

	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BalanceExporter renders a stock snapshot to a workbook
type BalanceExporter interface {
	WriteStock(w io.Writer, balances []stock.SourceBalance) error
}

// StockService exposes ledger maintenance: goods receipts, container
// registration and status tracking, and balance reporting.
type StockService struct {
	ledger   *stock.Ledger
	catalog  catalog.Reader
	exporter BalanceExporter
	logger   *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(ledger *stock.Ledger, reader catalog.Reader, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{ledger: ledger, catalog: reader, logger: logger}
}

// SetExporter sets the workbook exporter
func (s *StockService) SetExporter(exporter BalanceExporter) {
	s.exporter = exporter
}

// ReceiveStock credits a source with goods that physically arrived
func (s *StockService) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*stock.SourceBalance, error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.receive",
		telemetry.SpanAttrReference, req.Reference,
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)
	defer span.End()

	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if _, err := s.catalog.LookupProduct(req.Reference); err != nil {
		return nil, err
	}
	sourceType, err := stock.ParseSourceType(req.SourceType)
	if err != nil {
		return nil, err
	}
	key, err := stock.NewSourceKey(sourceType, req.SourceID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Receive(ctx, key, req.Reference, req.Quantity); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Stock received",
		zap.String("source", key.String()),
		zap.String("reference", req.Reference),
		zap.String("quantity", req.Quantity.String()),
	)
	return s.balanceOf(key)
}

// RegisterContainer adds a container to the ledger
func (s *StockService) RegisterContainer(ctx context.Context, req RegisterContainerRequest) (*ContainerResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.register_container", "container_id", req.ID)
	defer span.End()

	c, err := stock.NewContainer(req.ID, req.Carrier, req.ETA.UTC())
	if err != nil {
		return nil, err
	}
	if req.Status != "" {
		status, err := stock.ParseContainerStatus(req.Status)
		if err != nil {
			return nil, err
		}
		c.Status = status
	}
	if err := s.ledger.RegisterContainer(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Container registered", zap.String("container_id", c.ID), zap.String("status", string(c.Status)))
	return s.GetContainer(ctx, c.ID)
}

// AdvanceContainer moves a container along its shipping lifecycle
func (s *StockService) AdvanceContainer(ctx context.Context, id string, req AdvanceContainerRequest) (*ContainerResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.advance_container", "container_id", id, "status", req.Status)
	defer span.End()

	status, err := stock.ParseContainerStatus(req.Status)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.AdvanceContainerStatus(ctx, id, status)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Container status advanced", zap.String("container_id", id), zap.String("status", string(status)))
	resp := toContainerResponse(rec, s.ledger.Policy())
	return &resp, nil
}

// GetContainer returns one container
func (s *StockService) GetContainer(_ context.Context, id string) (*ContainerResponse, error) {
	rec, err := s.ledger.Container(id)
	if err != nil {
		return nil, err
	}
	resp := toContainerResponse(rec, s.ledger.Policy())
	return &resp, nil
}

// Balances reports every source
func (s *StockService) Balances(_ context.Context) []stock.SourceBalance {
	return s.ledger.Snapshot()
}

// Availability reports how much of a product can be reserved right now
func (s *StockService) Availability(ctx context.Context, reference string) (*AvailabilityResponse, error) {
	if _, err := s.catalog.LookupProduct(reference); err != nil {
		return nil, err
	}
	resp := &AvailabilityResponse{
		Reference: reference,
		Available: s.ledger.AvailableQuantity(ctx, reference),
		Sources:   []SourceQuantityEntry{},
	}
	for _, b := range s.ledger.Snapshot() {
		if !b.Eligible {
			continue
		}
		if qty, ok := b.Holdings[reference]; ok && qty.IsPositive() {
			resp.Sources = append(resp.Sources, SourceQuantityEntry{Source: b.Key, Quantity: qty})
		}
	}
	return resp, nil
}

// ExportWorkbook writes the current snapshot as a spreadsheet
func (s *StockService) ExportWorkbook(ctx context.Context, w io.Writer) error {
	if s.exporter == nil {
		return shared.NewDomainError(shared.CodeUnavailable, "Stock export is not configured")
	}
	return s.exporter.WriteStock(w, s.Balances(ctx))
}

func (s *StockService) balanceOf(key stock.SourceKey) (*stock.SourceBalance, error) {
	for _, b := range s.ledger.Snapshot() {
		if b.Key == key {
			return &b, nil
		}
	}
	return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Stock source %s not found", key)
}
