package session

import (
	"context"
	"time"
)

// startRenewalLocked arms the renewal loop unless it is already running.
// The loop belongs to the authenticated phase, not to any screen.
func (c *Controller) startRenewalLocked() {
	if c.closed || c.stopRenewal != nil || c.renewalInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.stopRenewal = cancel
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		c.renewLoop(ctx)
	}()
}

func (c *Controller) stopRenewalLocked() {
	if c.stopRenewal == nil {
		return
	}
	c.stopRenewal()
	c.stopRenewal = nil
}

func (c *Controller) renewLoop(ctx context.Context) {
	ticker := time.NewTicker(c.renewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.renew()
		}
	}
}

// renew swaps the stored credential for a fresh one. Failures are only
// logged: the next authenticated call classifies any real problem.
func (c *Controller) renew() {
	c.mu.Lock()
	cred, ok := c.store.Get()
	gen := c.generation
	c.mu.Unlock()

	if !ok {
		c.metrics.renewal(OutcomeSkipped)
		return
	}

	// An in-flight renewal is not aborted when the loop stops; the generation
	// check below drops its result instead.
	ctx, cancel := context.WithTimeout(c.ctx, c.requestTimeout)
	grant, err := c.gw.Refresh(ctx, cred)
	cancel()
	if err != nil {
		c.metrics.renewal(OutcomeFailed)
		c.logger.Debug().Err(err).Msg("credential renewal failed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.store.Get()
	if gen != c.generation || !ok || current.Token != cred.Token {
		c.metrics.renewal(OutcomeSkipped)
		return
	}
	if err := c.store.Set(grant.Credential()); err != nil {
		c.logger.Warn().Err(err).Msg("renewed credential not persisted")
	}
	c.metrics.renewal(OutcomeOK)
	c.logger.Debug().Time("expires_at", grant.ExpiresAt).Msg("credential renewed")
}
