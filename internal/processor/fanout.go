package processor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/grocery-deals/internal/models"
)

// fetchTask is one upstream call in a concurrent batch.
type fetchTask struct {
	label string
	run   func(ctx context.Context) ([]models.Coupon, error)
}

// bestEffort runs fn and converts a failure into the zero value plus an error
// message. It is the single place where fetch errors stop propagating.
func bestEffort[T any](ctx context.Context, label string, fn func(context.Context) (T, error)) (T, string) {
	v, err := fn(ctx)
	if err != nil {
		slog.Warn("Upstream fetch failed", "task", label, "error", err)
		var zero T
		return zero, err.Error()
	}
	return v, ""
}

// runBatch executes tasks concurrently, at most limit at a time, and joins on
// all of them. A failed task never cancels its siblings. Results and errors
// come back in task order.
func runBatch(ctx context.Context, limit int, tasks []fetchTask) ([][]models.Coupon, []string) {
	results := make([][]models.Coupon, len(tasks))
	failures := make([]string, len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			results[i], failures[i] = bestEffort(ctx, task.label, task.run)
			return nil
		})
	}
	_ = g.Wait()

	return results, compact(failures)
}

func compact(msgs []string) []string {
	var out []string
	for _, m := range msgs {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func flatten(lists [][]models.Coupon) []models.Coupon {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]models.Coupon, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
