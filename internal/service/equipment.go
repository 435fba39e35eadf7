package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
)

type DamageInput struct {
	EquipmentID uint64
	ReporterID  uint64
	BookingID   *uint64
	Quantity    int
	Description string
	Severity    model.DamageSeverity
	Evidence    string
}

// EquipmentService exposes the ledger operations that are not part of a
// booking: listing stock and the damage report lifecycle.
type EquipmentService struct {
	Ledger EquipmentStore
	Log    *zap.Logger
	Now    Clock
}

func NewEquipmentService(l EquipmentStore, log *zap.Logger) *EquipmentService {
	if l == nil {
		panic("nil ledger passed to NewEquipmentService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentService{Ledger: l, Log: log}
}

func (s *EquipmentService) List(ctx context.Context, onlyAvailable bool) ([]model.Equipment, error) {
	return s.Ledger.List(ctx, onlyAvailable)
}

// ReportDamage moves units from usable stock into the damaged count and
// records who reported it.
func (s *EquipmentService) ReportDamage(ctx context.Context, in DamageInput) (model.DamageReport, error) {
	if in.EquipmentID == 0 {
		return model.DamageReport{}, invalid(CodeInvalidEquipment, "equipment_id is required", nil)
	}
	if in.Quantity < 1 {
		return model.DamageReport{}, invalid(CodeInvalidQuantity, "quantity must be at least 1", nil)
	}
	if in.Severity == "" {
		in.Severity = model.SeverityLow
	}
	if !in.Severity.Valid() {
		return model.DamageReport{}, invalid(CodeInvalidRequest, fmt.Sprintf("unknown severity %q", in.Severity), nil)
	}
	d := model.DamageReport{
		EquipmentID:     in.EquipmentID,
		ReporterID:      in.ReporterID,
		BookingID:       in.BookingID,
		QuantityDamaged: in.Quantity,
		Description:     strings.TrimSpace(in.Description),
		Severity:        in.Severity,
		Evidence:        in.Evidence,
		Status:          model.DamageReported,
	}
	if err := s.Ledger.ReportDamage(ctx, &d); err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) || errors.Is(err, repository.ErrEquipmentInactive) {
			return model.DamageReport{}, invalid(CodeInvalidEquipment, err.Error(), err)
		}
		return model.DamageReport{}, err
	}
	s.Log.Info("damage reported",
		zap.Uint64("report_id", d.ID), zap.Uint64("equipment_id", d.EquipmentID),
		zap.Int("quantity", d.QuantityDamaged), zap.String("severity", string(d.Severity)))
	return d, nil
}

// ResolveDamage closes a report. An empty resolution means repaired.
func (s *EquipmentService) ResolveDamage(ctx context.Context, reportID, resolverID uint64, res model.Resolution) (model.DamageReport, error) {
	if res == "" {
		res = model.ResolutionRepaired
	}
	if !res.Valid() {
		return model.DamageReport{}, invalid(CodeInvalidRequest, fmt.Sprintf("unknown resolution %q", res), nil)
	}
	d, err := s.Ledger.ResolveDamage(ctx, reportID, resolverID, res, clockOr(s.Now)())
	if err != nil {
		return model.DamageReport{}, err
	}
	s.Log.Info("damage resolved", zap.Uint64("report_id", d.ID), zap.String("resolution", string(res)))
	return d, nil
}

func (s *EquipmentService) ListReports(ctx context.Context, status model.DamageStatus) ([]model.DamageReport, error) {
	if status != "" && status != model.DamageReported && status != model.DamageResolved {
		return nil, invalid(CodeInvalidRequest, fmt.Sprintf("unknown status %q", status), nil)
	}
	return s.Ledger.ListDamageReports(ctx, status)
}
