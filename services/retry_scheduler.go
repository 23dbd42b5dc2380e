package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smartcommerce/notification-service/utils"
)

// Sweep defaults
const (
	DispatchInterval = 1 * time.Minute
	RetryInterval    = 1 * time.Hour
	CleanupInterval  = 24 * time.Hour

	DispatchBatchSize = 100
	RetryBatchSize    = 50

	StaleSubscriptionAge = 30 * 24 * time.Hour
)

// RetryScheduler runs the three recurring sweeps: dispatch due scheduled
// notifications, retry failed ones with backoff, and prune stale push
// subscriptions. Each sweep is single-flight: an in-process flag stops a slow
// tick from overlapping the next, and a Redis lease stops two instances from
// processing the same batch cluster-wide.
type RetryScheduler struct {
	Store        *NotificationStore
	Orchestrator *DeliveryOrchestrator
	Redis        *redis.Client // nil -> in-process guard only

	DispatchEvery time.Duration
	RetryEvery    time.Duration
	CleanupEvery  time.Duration

	StopChan chan struct{}

	dispatchBusy atomic.Bool
	retryBusy    atomic.Bool
	cleanupBusy  atomic.Bool
}

func NewRetryScheduler(store *NotificationStore, orch *DeliveryOrchestrator, rdb *redis.Client) *RetryScheduler {
	return &RetryScheduler{
		Store:         store,
		Orchestrator:  orch,
		Redis:         rdb,
		DispatchEvery: DispatchInterval,
		RetryEvery:    RetryInterval,
		CleanupEvery:  CleanupInterval,
		StopChan:      make(chan struct{}),
	}
}

func (rs *RetryScheduler) Start() {
	go rs.loop(rs.DispatchEvery, &rs.dispatchBusy, "dispatch_scheduled", rs.DispatchScheduled)
	go rs.loop(rs.RetryEvery, &rs.retryBusy, "retry_failed", rs.RetryFailed)
	go rs.loop(rs.CleanupEvery, &rs.cleanupBusy, "cleanup_subscriptions", rs.CleanupSubscriptions)
	utils.InfoLogger.Println("Retry scheduler started")
}

func (rs *RetryScheduler) Stop() {
	close(rs.StopChan)
}

func (rs *RetryScheduler) loop(interval time.Duration, busy *atomic.Bool, job string, sweep func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				utils.InfoLogger.Printf("sweep %s still running, skipping tick", job)
				continue
			}
			if rs.acquireLease(job, interval) {
				sweep()
			}
			busy.Store(false)
		case <-rs.StopChan:
			return
		}
	}
}

// acquireLease grabs the cluster-wide lease for a job via SETNX. The lease
// expires on its own so a crashed holder does not wedge the sweep.
func (rs *RetryScheduler) acquireLease(job string, interval time.Duration) bool {
	if rs.Redis == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := rs.Redis.SetNX(ctx, "notifications:lease:"+job, time.Now().UnixNano(), interval).Result()
	if err != nil {
		// Redis outage: run the sweep anyway, double processing is bounded
		// by the terminal-status checks in the orchestrator.
		utils.ErrorLogger.Printf("lease acquisition failed for %s: %v", job, err)
		return true
	}
	return ok
}

// DispatchScheduled delivers pending notifications whose schedule time has
// arrived, a bounded batch per tick.
func (rs *RetryScheduler) DispatchScheduled() {
	due, err := rs.Store.DueScheduled(time.Now(), DispatchBatchSize)
	if err != nil {
		utils.ErrorLogger.Printf("dispatch sweep query failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	utils.InfoLogger.Printf("dispatching %d scheduled notifications", len(due))
	for i := range due {
		n := due[i]
		if err := rs.Orchestrator.Deliver(&n); err != nil {
			utils.ErrorLogger.Printf("scheduled dispatch failed for notification %d: %v", n.ID, err)
		}
	}
}

// RetryFailed re-runs delivery for failed notifications still under the retry
// cap whose backoff has elapsed. A renewed failure re-increments the count
// inside the orchestrator; notifications at the cap never match the query.
func (rs *RetryScheduler) RetryFailed() {
	candidates, err := rs.Store.RetryableFailed(time.Now(), RetryBatchSize)
	if err != nil {
		utils.ErrorLogger.Printf("retry sweep query failed: %v", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	utils.InfoLogger.Printf("retrying %d failed notifications", len(candidates))
	for i := range candidates {
		n := candidates[i]
		if err := rs.Orchestrator.Deliver(&n); err != nil {
			utils.ErrorLogger.Printf("retry failed for notification %d (attempt %d): %v",
				n.ID, n.RetryCount, err)
		}
	}
}

// CleanupSubscriptions deactivates push subscriptions unused for 30 days.
func (rs *RetryScheduler) CleanupSubscriptions() {
	pruned, err := rs.Store.PruneStaleSubscriptions(time.Now().Add(-StaleSubscriptionAge))
	if err != nil {
		utils.ErrorLogger.Printf("subscription cleanup failed: %v", err)
		return
	}
	if pruned > 0 {
		utils.InfoLogger.Printf("deactivated %d stale push subscriptions", pruned)
	}
}
