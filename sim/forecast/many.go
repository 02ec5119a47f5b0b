package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/etas-sim/etas-sim/sim/store"
)

// Batch describes a SimulateMany call.
type Batch struct {
	Days        int
	Simulations int
	// MThr is the output magnitude threshold; nil means the calibration's
	// reference magnitude. Events below MThr − delta_m/2 are dropped.
	MThr *float64
}

// SimulateMany runs b.Simulations independent continuations, tags each with
// its catalog_id and writes them in run order, flushing after run 0, every
// FlushEvery runs and after the last run. Output is additionally restricted
// to the region.
//
// Runs execute on up to Options.Parallel goroutines. A failing run is logged
// and contributes no rows; the failures are returned together once the batch
// is done. Cancelling ctx stops new runs from starting and persists the runs
// completed so far.
func (s *ETASSimulation) SimulateMany(ctx context.Context, sink store.Sink, b Batch) error {
	if b.Simulations <= 0 {
		return fmt.Errorf("forecast: simulations must be > 0, got %d", b.Simulations)
	}
	if s.simulator == nil {
		return errors.New("forecast: Prepare has not been called")
	}
	began := time.Now()
	start, end := s.window(b.Days)
	mThr := s.bundle.Spec.MRef
	if b.MThr != nil {
		mThr = *b.MThr
	}
	minMag := mThr - s.bundle.Spec.DeltaM/2

	w := &orderedWriter{sink: sink, recorder: s.opts.Recorder, total: b.Simulations, done: make(map[int][]store.Row)}
	failures := make([]error, b.Simulations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallel)
	for i := 0; i < b.Simulations; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := s.run(i, start, end)
			if err != nil {
				logrus.WithField("catalog_id", i).WithError(err).Error("simulation failed; excluded from output")
				failures[i] = err
				return w.deliver(i, nil)
			}
			return w.deliver(i, rows(res, i, start, end, minMag, s.region))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := w.flushRemaining(); err != nil {
		return err
	}

	logrus.Infof("simulated %d catalogs in %s", w.next, time.Since(began).Round(time.Millisecond))
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stopped after %d of %d simulations: %w", w.next, b.Simulations, err)
	}
	var failed []error
	for _, err := range failures {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d simulations failed: %w", len(failed), b.Simulations, errors.Join(failed...))
	}
	return nil
}

// orderedWriter reorders completed runs by catalog id and writes them in
// batches. One lock covers the buffer and the sink write.
type orderedWriter struct {
	mu       sync.Mutex
	sink     store.Sink
	recorder Recorder
	total    int

	done    map[int][]store.Row
	next    int
	pending []store.Row
}

func (w *orderedWriter) deliver(id int, rows []store.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done[id] = rows
	for {
		rows, ok := w.done[w.next]
		if !ok {
			return nil
		}
		delete(w.done, w.next)
		w.pending = append(w.pending, rows...)
		flush := w.next%FlushEvery == 0 || w.next == w.total-1
		w.next++
		if flush {
			if err := w.flush(); err != nil {
				return err
			}
		}
	}
}

// flushRemaining writes rows of in-order runs still buffered after a
// cancelled batch.
func (w *orderedWriter) flushRemaining() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	return w.flush()
}

func (w *orderedWriter) flush() error {
	if err := w.sink.WriteBatch(w.pending); err != nil {
		return fmt.Errorf("storing simulations up to %d: %w", w.next-1, err)
	}
	logrus.Debugf("stored simulations up to %d (%d rows)", w.next-1, len(w.pending))
	if w.recorder != nil {
		w.recorder.Flushed(len(w.pending))
	}
	w.pending = nil
	return nil
}
