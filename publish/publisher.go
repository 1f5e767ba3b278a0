package publish

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/service"
	cmtsync "github.com/gospiritual/yacy-search-server/libs/sync"
)

// Publisher periodically uploads the seed list and verifies it.
type Publisher struct {
	service.BaseService

	cfg      *config.PublishConfig
	dir      Directory
	uploader Uploader
	metrics  *Metrics

	ticker *time.Ticker
	cancel context.CancelFunc
	done   chan struct{}

	mtx cmtsync.Mutex // one round at a time
}

// PublisherOption sets an optional parameter on the Publisher.
type PublisherOption func(*Publisher)

// WithMetrics sets the metrics.
func WithMetrics(m *Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// NewPublisher returns a Publisher uploading the seed list of dir with
// uploader as configured in cfg.
func NewPublisher(
	cfg *config.PublishConfig,
	dir Directory,
	uploader Uploader,
	options ...PublisherOption,
) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		dir:      dir,
		uploader: uploader,
		metrics:  NopMetrics(),
	}
	p.BaseService = *service.NewBaseService(nil, "Publisher", p)
	for _, option := range options {
		option(p)
	}
	return p
}

// OnStart implements service.Service by starting the publication routine.
func (p *Publisher) OnStart() error {
	if p.cfg.Interval <= 0 {
		return errors.New("publish interval must be positive")
	}
	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	p.ticker = time.NewTicker(p.cfg.Interval)
	go p.processPublishTicks(ctx)
	return nil
}

// processPublishTicks publishes the seed list on every tick.
func (p *Publisher) processPublishTicks(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-p.ticker.C:
			if _, err := p.Publish(ctx); err != nil {
				p.Logger.Error("Periodic seed list publication failed", "err", err)
			}
		case <-ctx.Done():
			return
		case <-p.Quit():
			return
		}
	}
}

// OnStop implements service.Service. It aborts a running round and waits
// for the routine to exit.
func (p *Publisher) OnStop() {
	p.ticker.Stop()
	p.cancel()
	<-p.done
}

// Publish runs one export, upload and verification round.
func (p *Publisher) Publish(ctx context.Context) (string, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	start := time.Now()
	log, seeds, err := uploadCache(ctx, p.dir, p.uploader, p.cfg.TempDir, p.cfg.SeedURL, p.cfg.VerifyTimeout)
	p.metrics.Duration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		p.metrics.Attempts.With("result", resultSuccess).Add(1)
		p.metrics.PublishedSeeds.Set(float64(seeds))
		p.Logger.Info("Published seed list", "url", p.cfg.SeedURL, "log", log)
	case errors.Is(err, ErrVerificationMismatch):
		p.metrics.Attempts.With("result", resultMismatch).Add(1)
		p.Logger.Error("Published seed list differs", "url", p.cfg.SeedURL, "err", err)
	case errors.Is(err, ErrTransport):
		p.metrics.Attempts.With("result", resultTransport).Add(1)
		p.Logger.Error("Failed to transfer seed list", "url", p.cfg.SeedURL, "err", err)
	default:
		p.metrics.Attempts.With("result", resultError).Add(1)
		p.Logger.Error("Failed to export seed list", "err", err)
	}
	return log, err
}
