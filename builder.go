package tokengate

import (
	"errors"
	"time"

	internalaudit "tokengate/internal/audit"
	"tokengate/session"
	"tokengate/token"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config

	store     session.Store
	provider  PrincipalProvider
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionStore sets the refresh-token session store. When omitted the
// Engine owns an in-process [session.MemoryStore].
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithPrincipalProvider sets the principal lookup used by verification and
// refresh. Required.
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets the destination for audit events. When omitted and audit
// is enabled, events go to [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the time source used for issuance and validation.
// Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and constructs the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("principal provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cloneBytes(cfg.Token.AccessSecret),
		RefreshSecret: cloneBytes(cfg.Token.RefreshSecret),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	store := b.store
	ownsStore := false
	if store == nil {
		store = session.NewMemoryStore(now)
		ownsStore = true
	}

	engine := &Engine{
		config:   cfg,
		codec:    codec,
		store:    store,
		provider: b.provider,
		now:      now,

		audit:   internalaudit.NewDispatcher(internalaudit.Config(cfg.Audit), b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	// An injected store may be shared with other processes; only an owned
	// store gets an owned sweeper.
	if ownsStore && cfg.Session.SweepInterval > 0 {
		engine.sweeper = session.NewSweeper(store, cfg.Session.SweepInterval, func(removed int, err error) {
			if err == nil && removed > 0 {
				engine.metrics.Add(MetricSweepRemoved, uint64(removed))
			}
		})
		engine.sweeper.Start()
	}

	b.built = true

	return engine, nil
}
