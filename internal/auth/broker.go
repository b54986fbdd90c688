package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const resolveKey = "credential"

// Broker decides which credential to use for each upstream call.
//
// Resolve never fails: when every strategy is ineligible or fails it returns
// the offline credential, which the proxy answers from canned data.
// Concurrent callers arriving while the cache is empty share a single
// resolution pass.
type Broker struct {
	cache      *TokenCache
	strategies []Strategy
	group      singleflight.Group
}

// NewBroker creates a broker trying strategies in the given order
func NewBroker(cache *TokenCache, strategies ...Strategy) *Broker {
	if cache == nil {
		cache = NewTokenCache()
	}
	return &Broker{
		cache:      cache,
		strategies: strategies,
	}
}

// Resolve returns a usable credential, possibly the offline sentinel
func (b *Broker) Resolve(ctx context.Context) Credential {
	return b.ResolveDetailed(ctx).Credential
}

// ResolveDetailed is Resolve plus whether the credential came from the cache
func (b *Broker) ResolveDetailed(ctx context.Context) Resolution {
	// Fast path: no I/O while the cached credential is valid
	if cred, ok := b.cache.Get(); ok {
		return Resolution{Credential: cred, From: SourceCached}
	}

	ch := b.group.DoChan(resolveKey, func() (interface{}, error) {
		// Double-check: a previous flight may have filled the cache while we queued
		if cred, ok := b.cache.Get(); ok {
			return Resolution{Credential: cred, From: SourceCached}, nil
		}
		// Detached from the leader's cancellation so waiters are not failed by it
		return b.runStrategies(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Resolution)
	case <-ctx.Done():
		log.Ctx(ctx).Warn().Err(ctx.Err()).Msg("credential resolution abandoned, serving offline")
		return Resolution{Credential: OfflineCredential(), From: SourceOffline}
	}
}

// runStrategies tries each strategy in order and caches the first success
func (b *Broker) runStrategies(ctx context.Context) Resolution {
	logger := log.Ctx(ctx)
	var failures []error

	for _, s := range b.strategies {
		cred, err := attempt(ctx, s)
		if err != nil {
			if errors.Is(err, ErrConfigIncomplete) {
				logger.Debug().Str("strategy", s.Name()).Err(err).Msg("strategy skipped")
				continue
			}
			logger.Warn().Str("strategy", s.Name()).Err(err).Msg("strategy failed, trying next")
			failures = append(failures, err)
			continue
		}

		b.cache.Set(cred)
		logger.Info().
			Str("strategy", s.Name()).
			Object("credential", cred).
			Msg("obtained Salesforce credential")
		return Resolution{Credential: cred, From: cred.Source}
	}

	logger.Warn().
		Err(ExhaustedError{Failures: failures}).
		Msg("no Salesforce credential available, serving offline data")
	return Resolution{Credential: OfflineCredential(), From: SourceOffline}
}

// attempt runs one strategy, turning a panic into a StrategyError.
// The flight runs in its own goroutine where no HTTP recoverer can reach it.
func attempt(ctx context.Context, s Strategy) (cred Credential, err error) {
	defer func() {
		if r := recover(); r != nil {
			cred = Credential{}
			err = StrategyError{Strategy: s.Name(), Reason: ReasonPanicked, Err: fmt.Errorf("%v", r)}
		}
	}()
	return s.Attempt(ctx)
}

// Invalidate drops the cached credential if it still holds value
func (b *Broker) Invalidate(value string) {
	if b.cache.Invalidate(value) {
		log.Debug().Msg("invalidated cached credential")
	}
}
