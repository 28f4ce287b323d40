package types

// Trend classifies the direction of the merged history+forecast series.
type Trend string

const (
	TrendUp      Trend = "Uptrend"
	TrendDown    Trend = "Downtrend"
	TrendUnknown Trend = "Unknown"
)

// Recommendation is the coarse action derived from the trend.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "Buy"
	RecommendationSell Recommendation = "Sell"
	RecommendationHold Recommendation = "Hold"
)

// Recommendation maps a trend to its action. The mapping is fixed: the
// recommendation derives from the trend alone.
func (t Trend) Recommendation() Recommendation {
	switch t {
	case TrendUp:
		return RecommendationBuy
	case TrendDown:
		return RecommendationSell
	default:
		return RecommendationHold
	}
}

// AnalysisResult is the structured summary consumed by the reporting
// collaborator. The JSON keys are a compatibility contract and must not
// change.
type AnalysisResult struct {
	Trend          Trend          `json:"trend"`
	Support        float64        `json:"support"`
	Resistance     float64        `json:"resistance"`
	Recommendation Recommendation `json:"recommendation"`
}
