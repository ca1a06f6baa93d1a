package service

import (
	"municipality/internal/config"
	"municipality/internal/models"
)

// FeeTable maps request types to their processing fee
type FeeTable struct {
	fees       map[models.RequestType]float64
	defaultFee float64
}

// NewFeeTable builds a fee table from configuration
func NewFeeTable(cfg config.PaymentsConfig) FeeTable {
	table := FeeTable{
		fees:       make(map[models.RequestType]float64, len(cfg.Fees)),
		defaultFee: cfg.DefaultFee,
	}
	for _, fee := range cfg.Fees {
		table.fees[models.RequestType(fee.RequestType)] = fee.Amount
	}
	return table
}

// Amount returns the fee for requestType, falling back to the default fee
func (t FeeTable) Amount(requestType models.RequestType) float64 {
	if amount, ok := t.fees[requestType]; ok {
		return amount
	}
	return t.defaultFee
}

// Table returns a copy of the configured fees keyed by request type
func (t FeeTable) Table() map[string]float64 {
	out := make(map[string]float64, len(t.fees))
	for requestType, amount := range t.fees {
		out[string(requestType)] = amount
	}
	return out
}
