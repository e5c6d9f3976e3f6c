package analysis

import "sort"

// SquareBalance compares a toll square's exit counter volume against its
// entry counter volume over the window
type SquareBalance struct {
	SquareCode    string  `json:"square_code"`
	EntryFlow     int64   `json:"entry_flow"`
	ExitFlow      int64   `json:"exit_flow"`
	MeanExitEntry float64 `json:"mean_exit_entry_ratio"`
	BinCount      int     `json:"bin_count"`
	Imbalanced    bool    `json:"imbalanced"`
}

// BalanceReport is the entry/exit conservation check over all toll squares
type BalanceReport struct {
	Squares         []SquareBalance `json:"squares"`
	ImbalancedCount int             `json:"imbalanced_count"`
}

// CheckSquareBalance outer-joins the entry and exit counter flow aggregates
// per square and date-hour bin. Over a long enough window a square's ramp
// counters should roughly conserve; a mean exit/entry ratio deviating from 1
// by more than maxDeviation marks the square imbalanced. Bins with zero entry
// flow carry no defined ratio and are skipped per the ratio contract, but
// their volumes still count.
func CheckSquareBalance(entryAgg, exitAgg map[AggregationKey]*FlowAggregate, maxDeviation float64) *BalanceReport {
	type acc struct {
		entry, exit int64
		ratioSum    float64
		ratioN      int
	}
	bySquare := make(map[string]*acc)
	get := func(code string) *acc {
		a := bySquare[code]
		if a == nil {
			a = &acc{}
			bySquare[code] = a
		}
		return a
	}

	keys := make(map[AggregationKey]bool, len(entryAgg)+len(exitAgg))
	for key := range entryAgg {
		keys[key] = true
	}
	for key := range exitAgg {
		keys[key] = true
	}

	for key := range keys {
		a := get(key.PointCode)
		var entry, exit int64
		if fa := entryAgg[key]; fa != nil {
			entry = fa.Total
		}
		if fa := exitAgg[key]; fa != nil {
			exit = fa.Total
		}
		a.entry += entry
		a.exit += exit
		if ratio, ok := Ratio(float64(exit), float64(entry)); ok {
			a.ratioSum += ratio
			a.ratioN++
		}
	}

	report := &BalanceReport{}
	for code, a := range bySquare {
		sb := SquareBalance{
			SquareCode:    code,
			EntryFlow:     a.entry,
			ExitFlow:      a.exit,
			MeanExitEntry: RatioOrZero(a.ratioSum, float64(a.ratioN)),
			BinCount:      a.ratioN,
		}
		if a.ratioN > 0 {
			dev := sb.MeanExitEntry - 1
			if dev < 0 {
				dev = -dev
			}
			sb.Imbalanced = dev > maxDeviation
		}
		if sb.Imbalanced {
			report.ImbalancedCount++
		}
		report.Squares = append(report.Squares, sb)
	}
	sort.Slice(report.Squares, func(i, j int) bool { return report.Squares[i].SquareCode < report.Squares[j].SquareCode })
	return report
}
