package worker

import (
	"context"
	"errors"
	"time"

	"enip/lock"
	"enip/service"

	log "github.com/sirupsen/logrus"
)

// Cycle is one ingest and export pass
type Cycle interface {
	Run(ctx context.Context) (*service.ExportSummary, error)
}

// Guard admits a cycle. ok is false when another process is already running one.
type Guard func(ctx context.Context) (release func(), ok bool, err error)

// Unguarded admits every cycle
func Unguarded(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

// LeaseGuard admits a cycle only while holding the redis run lock. The lease is
// extended for as long as the cycle runs, so a slow export never outlives it.
func LeaseGuard(l *lock.RunLock) Guard {
	return func(ctx context.Context) (func(), bool, error) {
		lease, err := l.TryAcquire(ctx)
		if err != nil || lease == nil {
			return nil, false, err
		}
		stopExtending := lease.KeepAlive(ctx)
		return func() {
			stopExtending()

			// Release must run even when the cycle's context is gone
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				if errors.Is(err, lock.ErrNotHeld) {
					log.Warn("Run lock expired before the cycle finished")
					return
				}
				log.WithError(err).Error("Failed to release run lock")
			}
		}, true, nil
	}
}

// StartWatchWorker runs a cycle immediately and then on every tick.
// Returns a cleanup function to stop the worker; cycles never overlap.
func StartWatchWorker(ctx context.Context, interval time.Duration, cycle Cycle, guard Guard) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})

	runCycle := func() {
		release, ok, err := guard(ctx)
		if err != nil {
			log.WithError(err).Error("Error acquiring run lock")
			return
		}
		if !ok {
			log.Info("Skipping cycle, another scheduler holds the run lock")
			return
		}
		defer release()

		start := time.Now()
		summary, err := cycle.Run(ctx)
		fields := log.Fields{"duration": time.Since(start).Round(time.Millisecond)}
		if summary != nil {
			changed := 0
			for _, c := range summary.Exports {
				if c {
					changed++
				}
			}
			fields["ingestId"] = summary.IngestID
			fields["changed"] = changed
			fields["failed"] = len(summary.Failed)
		}
		if err != nil {
			log.WithFields(fields).WithError(err).Error("Run cycle failed")
			return
		}
		log.WithFields(fields).Info("Run cycle completed")
	}

	go func() {
		defer close(done)
		log.WithField("interval", interval).Info("Watch worker started")

		runCycle()

		for {
			select {
			case <-ctx.Done():
				log.Info("Watch worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Watch worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				runCycle()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
		<-done
	}
}
