package market

import (
	"fmt"
	"math"
	"time"
)

// MaxHourlyFundingRate 资金费率的合理上限（每小时 1%），超出视为脏数据。
const MaxHourlyFundingRate = 0.01

// FundingRate 资金费率快照（小时费率）。
type FundingRate struct {
	Asset         string    `json:"asset"`
	Timestamp     time.Time `json:"timestamp"`
	Rate          float64   `json:"rate"`
	PredictedRate float64   `json:"predicted_rate,omitempty"`
}

func NewFundingRate(asset string, ts time.Time, rate, predicted float64) (*FundingRate, error) {
	if math.Abs(rate) > MaxHourlyFundingRate {
		return nil, fmt.Errorf("funding: rate %.6f exceeds ±%.2f%%/h bound for %s", rate, MaxHourlyFundingRate*100, asset)
	}
	if predicted != 0 && math.Abs(predicted) > MaxHourlyFundingRate {
		return nil, fmt.Errorf("funding: predicted rate %.6f exceeds ±%.2f%%/h bound for %s", predicted, MaxHourlyFundingRate*100, asset)
	}
	return &FundingRate{Asset: asset, Timestamp: ts, Rate: rate, PredictedRate: predicted}, nil
}
