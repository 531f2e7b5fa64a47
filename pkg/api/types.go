package api

import (
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/joripage/futures-bot/pkg/strategy/twap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

type CreateGridRequest struct {
	Symbol     string `json:"symbol"`
	LowerPrice string `json:"lower_price"`
	UpperPrice string `json:"upper_price"`
	Levels     int    `json:"grid_levels"`
	Investment string `json:"investment"`
	// Deploy places the ladder right after creating it.
	Deploy bool `json:"deploy"`
}

func (r CreateGridRequest) params() grid.Params {
	return grid.Params{
		Symbol:     r.Symbol,
		LowerPrice: r.LowerPrice,
		UpperPrice: r.UpperPrice,
		Levels:     r.Levels,
		Investment: r.Investment,
	}
}

type CreateGridResponse struct {
	Grid   model.GridSnapshot `json:"grid"`
	Deploy *DeployResponse    `json:"deploy,omitempty"`
}

type DeployResponse struct {
	*grid.DeployReport
	Errors []string `json:"errors,omitempty"`
}

type MonitorResponse struct {
	*grid.MonitorReport
	Errors []string `json:"errors,omitempty"`
}

type StopGridResponse struct {
	*grid.StopReport
	Errors []string `json:"errors,omitempty"`
}

type StartTWAPRequest struct {
	Symbol          string `json:"symbol"`
	Side            string `json:"side"`
	Quantity        string `json:"quantity"`
	DurationMinutes int    `json:"duration_minutes"`
	Chunks          int    `json:"chunks"`
}

func (r StartTWAPRequest) params() twap.Params {
	return twap.Params{
		Symbol:          r.Symbol,
		Side:            r.Side,
		Quantity:        r.Quantity,
		DurationMinutes: r.DurationMinutes,
		Chunks:          r.Chunks,
	}
}

type StopTWAPResponse struct {
	ID      string           `json:"twap_id"`
	Stopped bool             `json:"stopped"`
	Status  model.TWAPStatus `json:"status"`
}

type StrategiesResponse struct {
	Grids []model.GridSnapshot `json:"grids"`
	TWAPs []model.TWAPSnapshot `json:"twaps"`
}

func errorMessages(failures []model.ItemFailure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Item+": "+f.Err.Error())
	}
	return out
}
