// htlcswap resolver daemon
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/40acres/htlcswap/database"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/resolver"
	"github.com/40acres/htlcswap/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

//go:generate go tool mockgen -destination=mock.go -package=daemon . Runner

const MonitoringInterval = 10 * time.Second

// Runner drives one swap to completion.
type Runner interface {
	Run(ctx context.Context, legs resolver.Legs, swap *models.Swap) error
}

// Service is any long running task started next to the monitor.
type Service func(ctx context.Context) error

func Start(ctx context.Context, server *rpc.Server, monitor *SwapMonitor, interval time.Duration, services ...Service) error {
	log.Info("Starting htlcswapd")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		server.Stop()

		return nil
	})
	for _, service := range services {
		g.Go(func() error {
			return service(ctx)
		})
	}
	g.Go(func() error {
		server.SetServing(true)
		defer server.SetServing(false)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			monitor.MonitorSwaps(ctx)

			select {
			case <-ctx.Done():
				log.Info("Shutting down htlcswapd")
				monitor.Wait()

				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

type SwapMonitor struct {
	repository database.SwapRepository
	runner     Runner
	legs       resolver.Legs

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewSwapMonitor(repository database.SwapRepository, runner Runner, legs resolver.Legs) *SwapMonitor {
	return &SwapMonitor{
		repository: repository,
		runner:     runner,
		legs:       legs,
		inflight:   make(map[string]struct{}),
	}
}

// MonitorSwaps resumes every pending swap of the monitored chains that is not
// already running.
func (m *SwapMonitor) MonitorSwaps(ctx context.Context) {
	swaps, err := m.repository.GetPendingSwaps(ctx)
	if err != nil {
		log.Errorf("failed to get pending swaps: %v", err)

		return
	}

	for _, swap := range swaps {
		if !m.legs.Owns(swap) {
			log.WithField("order", swap.OrderHash).Debugf("skipping swap on %s -> %s", swap.SrcChain, swap.DstChain)

			continue
		}
		if !m.claim(swap.OrderHash) {
			continue
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.release(swap.OrderHash)

			m.MonitorSwap(ctx, swap)
		}()
	}
}

func (m *SwapMonitor) MonitorSwap(ctx context.Context, swap *models.Swap) {
	logger := log.WithFields(log.Fields{
		"order":  swap.OrderHash,
		"status": swap.Status,
	})
	logger.Info("processing swap")

	if err := m.runner.Run(ctx, m.legs, swap); err != nil {
		logger.WithError(err).Error("failed to run swap")

		return
	}

	logger.WithField("outcome", swap.Outcome).Info("swap processed")
}

// Wait blocks until every swap started by MonitorSwaps returned.
func (m *SwapMonitor) Wait() {
	m.wg.Wait()
}

func (m *SwapMonitor) claim(orderHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.inflight[orderHash]; running {
		return false
	}
	m.inflight[orderHash] = struct{}{}

	return true
}

func (m *SwapMonitor) release(orderHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inflight, orderHash)
}
