package stats

import (
	"encoding/json"
	"math"
)

// summaryJSON mirrors Summary with nullable floats so undefined (NaN)
// statistics survive a JSON round trip as null instead of failing to
// marshal.
type summaryJSON struct {
	Count        int      `json:"count"`
	Mean         *float64 `json:"mean"`
	Std          *float64 `json:"std"`
	Min          *float64 `json:"min"`
	P25          *float64 `json:"p25"`
	P50          *float64 `json:"p50"`
	P75          *float64 `json:"p75"`
	Max          *float64 `json:"max"`
	WinRate      *float64 `json:"win_rate"`
	ProfitFactor *float64 `json:"profit_factor"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		Count:        s.Count,
		Mean:         nullable(s.Mean),
		Std:          nullable(s.Std),
		Min:          nullable(s.Min),
		P25:          nullable(s.P25),
		P50:          nullable(s.P50),
		P75:          nullable(s.P75),
		Max:          nullable(s.Max),
		WinRate:      nullable(s.WinRate),
		ProfitFactor: nullable(s.ProfitFactor),
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var sj summaryJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	*s = Summary{
		Count:        sj.Count,
		Mean:         orNaN(sj.Mean),
		Std:          orNaN(sj.Std),
		Min:          orNaN(sj.Min),
		P25:          orNaN(sj.P25),
		P50:          orNaN(sj.P50),
		P75:          orNaN(sj.P75),
		Max:          orNaN(sj.Max),
		WinRate:      orNaN(sj.WinRate),
		ProfitFactor: orNaN(sj.ProfitFactor),
	}
	return nil
}
