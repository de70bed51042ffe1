package posting

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const assetResource = "fixed_asset"

// AssetService posts fixed asset acquisition, depreciation and disposal
type AssetService struct {
	poster
}

// NewAssetService creates a new AssetService
func NewAssetService(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *AssetService {
	return &AssetService{poster: newPoster(uow, journal, recorder, settings, logger)}
}

// AcquireAsset registers an asset and posts its cost against the credit account
func (s *AssetService) AcquireAsset(ctx context.Context, tenantID, actorID uuid.UUID, req AcquireAssetRequest) (*AssetResponse, error) {
	var asset *finance.FixedAsset
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		accumID, err := s.orControl(ctx, repos, tenantID, req.AccumulatedDepreciationID, "accumulated_depreciation", s.settings.Controls.AccumulatedDepreciation)
		if err != nil {
			return err
		}
		expenseID, err := s.orControl(ctx, repos, tenantID, req.DepreciationExpenseID, "depreciation_expense", s.settings.Controls.DepreciationExpense)
		if err != nil {
			return err
		}
		asset, err = finance.NewFixedAsset(tenantID, req.Code, req.Name, req.AcquisitionDate,
			req.Cost, req.SalvageValue, req.UsefulLifePeriods,
			finance.DepreciationMethod(strings.ToUpper(req.Method)),
			finance.AssetAccounts{
				AssetAccountID:            req.AssetAccountID,
				AccumulatedDepreciationID: accumID,
				DepreciationExpenseID:     expenseID,
			})
		if err != nil {
			return err
		}

		entry, err := s.post(ctx, repos, tenantID, actorID, AcquisitionEntry(asset, req.CreditAccountID), "")
		if err != nil {
			return err
		}
		asset.MarkAcquired(entry.ID)
		if err := repos.Assets().Create(ctx, asset); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAsset, audit.ActionCreate, assetResource, asset.ID, nil, ToAssetResponse(asset))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fixed asset acquired",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", asset.Code),
		zap.String("cost", asset.Cost.String()),
	)
	resp := ToAssetResponse(asset)
	return &resp, nil
}

// RunDepreciation charges one period's depreciation for every active asset
// acquired by the period end. An asset already charged for the period is
// skipped, so the run can be repeated.
func (s *AssetService) RunDepreciation(ctx context.Context, tenantID, actorID, periodID uuid.UUID) (*DepreciationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "asset", "run_depreciation", attribute.String("period_id", periodID.String()))
	var result *DepreciationResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		period, err := repos.Periods().FindByID(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		result, err = s.depreciate(ctx, repos, period, actorID, false)
		return err
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunCloseTask depreciates the closing period inside the close task's transaction
func (s *AssetService) RunCloseTask(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error) {
	result, err := s.depreciate(ctx, repos, period, actorID, true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d assets depreciated for %s, %d skipped", result.Depreciated, result.Total.StringFixed(s.scale()), result.Skipped), nil
}

func (s *AssetService) depreciate(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID, closeScope bool) (*DepreciationResult, error) {
	result := &DepreciationResult{PeriodID: period.ID, Total: decimal.Zero}
	assets, err := repos.Assets().ListDepreciable(ctx, period.TenantID, period.EndDate)
	if err != nil {
		return nil, err
	}

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done, err := repos.Assets().HasDepreciation(ctx, period.TenantID, asset.ID, period.ID)
		if err != nil {
			return nil, err
		}
		amount := asset.NextDepreciation(s.scale())
		if done || !amount.IsPositive() {
			result.Skipped++
			continue
		}

		before := ToAssetResponse(asset)
		entry, err := s.journal.PostDraft(ctx, repos, period.TenantID, actorID,
			DepreciationEntry(asset, amount, period.EndDate, period.Label),
			ledgerapp.PostOptions{CloseScope: closeScope})
		if err != nil {
			return nil, err
		}
		asset.RecordDepreciation(amount)
		if err := repos.Assets().Save(ctx, asset); err != nil {
			return nil, err
		}
		if err := repos.Assets().RecordDepreciation(ctx, &finance.DepreciationRecord{
			ID:             uuid.New(),
			TenantID:       period.TenantID,
			AssetID:        asset.ID,
			PeriodID:       period.ID,
			Amount:         amount,
			JournalEntryID: entry.ID,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			return nil, err
		}
		if err := s.record(ctx, repos, period.TenantID, actorID, ledger.SourceAsset, audit.ActionDepreciate, assetResource, asset.ID, before, ToAssetResponse(asset)); err != nil {
			return nil, err
		}
		result.Depreciated++
		result.Total = result.Total.Add(amount)
	}

	s.logger.Info("depreciation run",
		zap.String("tenant_id", period.TenantID.String()),
		zap.String("period", period.Label),
		zap.Int("depreciated", result.Depreciated),
		zap.Int("skipped", result.Skipped),
		zap.String("total", result.Total.String()),
	)
	return result, nil
}

// DisposeAsset posts the disposal with any gain or loss against the
// configured disposal account
func (s *AssetService) DisposeAsset(ctx context.Context, tenantID, actorID, assetID uuid.UUID, req DisposeAssetRequest) (*AssetResponse, error) {
	var asset *finance.FixedAsset
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		asset, err = repos.Assets().FindByID(ctx, tenantID, assetID)
		if err != nil {
			return err
		}
		if asset.Status == finance.AssetStatusDisposed {
			return ledger.ErrWrongStatus.WithDetail("asset_id", asset.ID.String())
		}
		if req.Proceeds.IsNegative() {
			return ledger.ErrInvalidLine.WithDetail("proceeds", req.Proceeds.String())
		}
		gainLossID, err := s.control(ctx, repos, tenantID, "disposal_gain_loss", s.settings.Controls.DisposalGainLoss)
		if err != nil {
			return err
		}
		before := ToAssetResponse(asset)

		entry, err := s.post(ctx, repos, tenantID, actorID, DisposalEntry(asset, req.Proceeds, req.CashAccountID, gainLossID, req.Date), "")
		if err != nil {
			return err
		}
		if err := asset.Dispose(entry.ID, req.Date); err != nil {
			return err
		}
		if err := repos.Assets().Save(ctx, asset); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAsset, audit.ActionDispose, assetResource, asset.ID, before, ToAssetResponse(asset))
	})
	if err != nil {
		return nil, err
	}
	resp := ToAssetResponse(asset)
	return &resp, nil
}

// GetAsset returns an asset by id
func (s *AssetService) GetAsset(ctx context.Context, tenantID, assetID uuid.UUID) (*AssetResponse, error) {
	asset, err := s.uow.Repos().Assets().FindByID(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	resp := ToAssetResponse(asset)
	return &resp, nil
}
