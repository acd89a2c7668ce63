package tax

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

// positionState is the running state of one security's replay.
type positionState struct {
	totalQuantity             decimal.Decimal
	totalQuantityBeforeReport decimal.Decimal
	movingAvgPrice            decimal.Decimal
	totalCapitalGains         decimal.Decimal
}

// prepareEvents converts the security's in-window buys and sells into
// computed-transaction stubs and, for an accumulating ETF whose OeKB report
// date falls inside the window, appends the synthetic cost-basis adjustment.
// Events are returned sorted ascending by date; on equal dates the
// adjustment sorts first, because the OeKB correction applies to the
// position as of the report date before same-day trades are counted.
func prepareEvents(cfg domain.FundConfig, transactions []domain.Transaction, ecbRate decimal.Decimal) ([]domain.ComputedTransaction, error) {
	events := make([]domain.ComputedTransaction, 0, len(transactions)+1)

	for _, t := range transactions {
		role := Classify(t)
		if role == RoleExcluded {
			continue
		}
		if t.Shares.IsZero() {
			return nil, fmt.Errorf("security %s: transaction %s on %s: %w",
				cfg.ISIN, t.Reference, t.Date.Format("2006-01-02"), ErrZeroQuantity)
		}

		kind := domain.ComputedBuy
		if role == RoleSell {
			kind = domain.ComputedSell
		}
		events = append(events, domain.ComputedTransaction{
			Kind:       kind,
			Date:       t.Date,
			Quantity:   t.Shares.Abs(),
			SharePrice: t.Price.Abs(),
		})
	}

	if cfg.SecurityType == domain.SecurityAccumulatingETF && cfg.ReportInPeriod() {
		events = append(events, domain.ComputedTransaction{
			Kind:             domain.ComputedAdjustment,
			Date:             *cfg.OekbReportDate,
			AdjustmentFactor: domain.RoundPrice(ecbRate.Mul(cfg.OekbAdjustmentFactor)),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Kind == domain.ComputedAdjustment && events[j].Kind != domain.ComputedAdjustment
	})

	return events, nil
}

// replay walks the sorted event list and applies each event to the running
// position. Every value stored back into the state is rounded at the step
// it is produced, not only at output; this keeps the figures identical to
// the filed reports, which accumulate the same rounding.
func replay(cfg domain.FundConfig, events []domain.ComputedTransaction) positionState {
	state := positionState{
		totalQuantity:             cfg.StartingQuantity,
		totalQuantityBeforeReport: cfg.StartingQuantity,
		movingAvgPrice:            cfg.StartingMovingAvgPrice,
		totalCapitalGains:         decimal.Zero,
	}

	for i := range events {
		e := &events[i]
		switch e.Kind {
		case domain.ComputedAdjustment:
			applyAdjustment(&state, e)
		case domain.ComputedBuy:
			applyBuy(&state, e, cfg.OekbReportDate)
		case domain.ComputedSell:
			applySell(&state, e, cfg.OekbReportDate)
		}
	}

	return state
}

// applyAdjustment shifts the moving average price by the per-share OeKB
// correction. With no shares held there is nothing to adjust; the event
// stays in the timeline as a recorded no-op.
func applyAdjustment(state *positionState, e *domain.ComputedTransaction) {
	if !state.totalQuantity.IsZero() {
		state.movingAvgPrice = domain.RoundPrice(state.movingAvgPrice.Add(e.AdjustmentFactor))
	}
	e.MovingAvgPrice = state.movingAvgPrice
	e.TotalQuantity = state.totalQuantity
}

func applyBuy(state *positionState, e *domain.ComputedTransaction, reportDate *time.Time) {
	held := state.totalQuantity.Mul(state.movingAvgPrice)
	bought := e.Quantity.Mul(e.SharePrice)
	newQuantity := state.totalQuantity.Add(e.Quantity)

	state.movingAvgPrice = domain.RoundPrice(held.Add(bought).Div(newQuantity))
	state.totalQuantity = domain.RoundQuantity(newQuantity)

	// Trades on the report date itself still count towards that report.
	if reportDate != nil && !e.Date.After(*reportDate) {
		state.totalQuantityBeforeReport = domain.RoundQuantity(state.totalQuantityBeforeReport.Add(e.Quantity))
	}

	e.MovingAvgPrice = state.movingAvgPrice
	e.TotalQuantity = state.totalQuantity
}

// applySell realizes the gain against the moving average price. Selling
// never changes the average cost of the remaining shares.
func applySell(state *positionState, e *domain.ComputedTransaction, reportDate *time.Time) {
	gain := e.Quantity.Mul(e.SharePrice.Sub(state.movingAvgPrice))
	state.totalCapitalGains = domain.RoundEuro(state.totalCapitalGains.Add(gain))
	state.totalQuantity = domain.RoundQuantity(state.totalQuantity.Sub(e.Quantity))

	if reportDate != nil && !e.Date.After(*reportDate) {
		state.totalQuantityBeforeReport = domain.RoundQuantity(state.totalQuantityBeforeReport.Sub(e.Quantity))
	}

	e.MovingAvgPrice = state.movingAvgPrice
	e.TotalQuantity = state.totalQuantity
}
