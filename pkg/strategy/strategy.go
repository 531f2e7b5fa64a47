// Package strategy holds helpers shared by the strategy engines.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

// BaseID formats SYMBOL_kind_unix, the identifier shape shown to users.
func BaseID(symbol, kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", symbol, kind, now.Unix())
}

// Register stores a new strategy under base, or base_2, base_3... when the id is taken
// (two strategies of the same kind created within one second).
func Register(base string, add func(id string) error) (string, error) {
	for n := 1; ; n++ {
		id := base
		if n > 1 {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		err := add(id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, model.ErrDuplicateID) {
			return "", err
		}
	}
}

// BatchReport summarises a best-effort operation over several orders.
type BatchReport struct {
	Succeeded int                 `json:"succeeded"`
	Failures  []model.ItemFailure `json:"-"`
}

func (r *BatchReport) Fail(item string, err error) {
	r.Failures = append(r.Failures, model.ItemFailure{Item: item, Err: err})
}

// Err returns a *model.PartialFailure when any item failed, else nil.
func (r *BatchReport) Err(op string) error {
	return model.NewPartialFailure(op, r.Succeeded, r.Failures)
}

// FailedCount is the number of items that failed.
func (r *BatchReport) FailedCount() int { return len(r.Failures) }
