// Package registry keeps the live strategy state of one process. Nothing in it survives a restart.
package registry

import "github.com/joripage/futures-bot/pkg/oms/model"

type Registry interface {
	AddGrid(g *model.GridStrategy) error
	GetGrid(id string) (*model.GridStrategy, error)
	ListGrids() []*model.GridStrategy

	AddRun(r *model.TWAPRun) error
	GetRun(id string) (*model.TWAPRun, error)
	ListRuns() []*model.TWAPRun

	// TrackOrder indexes a handle by exchange order id. The strategy keeps ownership.
	TrackOrder(h *model.OrderHandle)
	GetOrder(orderID int64) (*model.OrderHandle, bool)
}
