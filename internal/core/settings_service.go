package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Tenant setting keys read by the order workflow.
const (
	SettingRequireApproval = "sales_order_require_approval"
	SettingThreshold       = "sales_order_threshold"
	SettingTaxRate         = "sales_tax_rate"
)

// SettingsStore loads and saves a company's workflow configuration from the settings table.
// Missing keys fall back to DefaultWorkflowConfig.
type SettingsStore interface {
	Load(ctx context.Context, companyID int) (WorkflowConfig, error)
	Save(ctx context.Context, companyID int, cfg WorkflowConfig) error
}

// DefaultWorkflowConfig is used for keys a company has not configured: no approval step, no tax.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		RequireApproval: false,
		Threshold:       decimal.Zero,
		DefaultTaxRate:  decimal.Zero,
	}
}

type settingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore constructs a SettingsStore backed by the settings table.
func NewSettingsStore(pool *pgxpool.Pool) SettingsStore {
	return &settingsStore{pool: pool}
}

func (s *settingsStore) Load(ctx context.Context, companyID int) (WorkflowConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, value
		FROM settings
		WHERE company_id = $1 AND key = ANY($2)
	`, companyID, []string{SettingRequireApproval, SettingThreshold, SettingTaxRate})
	if err != nil {
		return WorkflowConfig{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return WorkflowConfig{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return WorkflowConfig{}, fmt.Errorf("error iterating settings: %w", err)
	}
	return parseWorkflowConfig(values)
}

func (s *settingsStore) Save(ctx context.Context, companyID int, cfg WorkflowConfig) error {
	if cfg.Threshold.IsNegative() {
		return validationErrorf("approval threshold cannot be negative, got %s", cfg.Threshold.String())
	}
	if cfg.DefaultTaxRate.IsNegative() {
		return validationErrorf("tax rate cannot be negative, got %s", cfg.DefaultTaxRate.String())
	}
	if !cfg.DefaultTaxRate.Equal(cfg.DefaultTaxRate.Truncate(TaxRateScale)) {
		return validationErrorf("tax rate %s has more than %d decimal places", cfg.DefaultTaxRate.String(), TaxRateScale)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	values := map[string]string{
		SettingRequireApproval: strconv.FormatBool(cfg.RequireApproval),
		SettingThreshold:       cfg.Threshold.String(),
		SettingTaxRate:         cfg.DefaultTaxRate.String(),
	}
	for key, value := range values {
		if _, err := tx.Exec(ctx, `
			INSERT INTO settings (company_id, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (company_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, companyID, key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// parseWorkflowConfig builds a WorkflowConfig from raw setting values.
func parseWorkflowConfig(values map[string]string) (WorkflowConfig, error) {
	cfg := DefaultWorkflowConfig()
	if v, ok := values[SettingRequireApproval]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return WorkflowConfig{}, fmt.Errorf("invalid %s value %q: %w", SettingRequireApproval, v, err)
		}
		cfg.RequireApproval = b
	}
	if v, ok := values[SettingThreshold]; ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return WorkflowConfig{}, fmt.Errorf("invalid %s value %q: %w", SettingThreshold, v, err)
		}
		cfg.Threshold = d
	}
	if v, ok := values[SettingTaxRate]; ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return WorkflowConfig{}, fmt.Errorf("invalid %s value %q: %w", SettingTaxRate, v, err)
		}
		cfg.DefaultTaxRate = d
	}
	return cfg, nil
}
