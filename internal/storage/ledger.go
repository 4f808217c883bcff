package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/models"
)

type ledgerStore struct {
	store  *Store
	logger *common.Logger
}

// NewLedgerStore creates a LedgerStore backed by BadgerHold.
func NewLedgerStore(store *Store, logger *common.Logger) *ledgerStore {
	return &ledgerStore{store: store, logger: logger}
}

func (s *ledgerStore) GetAsset(_ context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	err := s.store.db.Get(id, &asset)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("asset '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get asset '%s': %w", id, err)
	}
	return &asset, nil
}

func (s *ledgerStore) FindAsset(_ context.Context, symbol string, class models.AssetClass) (*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("Symbol").Eq(symbol).Index("Symbol")
	if err := s.store.db.Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to find asset '%s': %w", symbol, err)
	}
	for i := range assets {
		if assets[i].Class == class {
			return &assets[i], nil
		}
	}
	return nil, nil
}

func (s *ledgerStore) SaveAsset(_ context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset ID is required")
	}
	asset.LastUpdated = time.Now()

	if err := s.store.db.Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	s.logger.Debug().Str("symbol", asset.Symbol).Str("class", string(asset.Class)).Msg("Asset saved")
	return nil
}

// DeleteAsset removes an asset and its transactions.
func (s *ledgerStore) DeleteAsset(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Asset{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete asset '%s': %w", id, err)
	}

	query := badgerhold.Where("AssetID").Eq(id).Index("AssetID")
	if err := s.store.db.DeleteMatching(&models.Transaction{}, query); err != nil {
		return fmt.Errorf("failed to delete transactions for asset '%s': %w", id, err)
	}

	s.logger.Debug().Str("id", id).Msg("Asset deleted")
	return nil
}

func (s *ledgerStore) ListAssets(_ context.Context) ([]*models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, nil); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Symbol < assets[j].Symbol
	})

	out := make([]*models.Asset, len(assets))
	for i := range assets {
		out[i] = &assets[i]
	}
	return out, nil
}

func (s *ledgerStore) ListAssetsByClass(_ context.Context, class models.AssetClass) ([]*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("Class").Eq(class)
	if err := s.store.db.Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to list %s assets: %w", class, err)
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Symbol < assets[j].Symbol
	})

	out := make([]*models.Asset, len(assets))
	for i := range assets {
		out[i] = &assets[i]
	}
	return out, nil
}

func (s *ledgerStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if tx.AssetID == "" {
		return fmt.Errorf("transaction asset ID is required")
	}

	if err := s.store.db.Upsert(tx.ID, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	s.logger.Debug().Str("asset", tx.AssetID).Str("type", string(tx.Type)).Msg("Transaction saved")
	return nil
}

// sortTransactions orders by date ascending with insertion order as the
// same-day tie break.
func sortTransactions(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Seq < txs[j].Seq
	})
}

func (s *ledgerStore) ListTransactions(_ context.Context) ([]*models.Transaction, error) {
	var txs []models.Transaction
	if err := s.store.db.Find(&txs, nil); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	sortTransactions(txs)

	out := make([]*models.Transaction, len(txs))
	for i := range txs {
		out[i] = &txs[i]
	}
	return out, nil
}

func (s *ledgerStore) ListTransactionsForAsset(_ context.Context, assetID string) ([]*models.Transaction, error) {
	var txs []models.Transaction
	query := badgerhold.Where("AssetID").Eq(assetID).Index("AssetID")
	if err := s.store.db.Find(&txs, query); err != nil {
		return nil, fmt.Errorf("failed to list transactions for asset '%s': %w", assetID, err)
	}

	sortTransactions(txs)

	out := make([]*models.Transaction, len(txs))
	for i := range txs {
		out[i] = &txs[i]
	}
	return out, nil
}
