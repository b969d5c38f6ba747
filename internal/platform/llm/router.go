package llm

import (
	"context"
	"sync"

	"github.com/yungbote/school-backend/internal/platform/logger"
)

type modelKey struct{}

// WithModel asks a Router to serve the call with model instead of the
// configured default.
func WithModel(ctx context.Context, model string) context.Context {
	if model == "" {
		return ctx
	}
	return context.WithValue(ctx, modelKey{}, model)
}

func ModelFrom(ctx context.Context) string {
	v, _ := ctx.Value(modelKey{}).(string)
	return v
}

// Router picks a provider per call from the model on the context, building
// and caching one wrapped provider per model name.
type Router struct {
	cfg      Config
	recorder Recorder
	log      *logger.Logger
	build    func(ctx context.Context, cfg Config) (Provider, error)

	mu        sync.Mutex
	providers map[string]Provider
	fallback  Provider
}

func NewRouter(ctx context.Context, cfg Config, recorder Recorder, log *logger.Logger) (*Router, error) {
	r := &Router{
		cfg:       cfg,
		recorder:  recorder,
		log:       log,
		providers: map[string]Provider{},
	}
	r.build = func(ctx context.Context, c Config) (Provider, error) {
		return NewProvider(ctx, c, r.recorder, r.log)
	}
	fallback, err := r.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.fallback = fallback
	return r, nil
}

func (r *Router) Generate(ctx context.Context, req Request) (*Response, error) {
	return r.pick(ctx).Generate(ctx, req)
}

func (r *Router) ModelID() string { return r.fallback.ModelID() }

func (r *Router) pick(ctx context.Context) Provider {
	model := ModelFrom(ctx)
	if model == "" {
		return r.fallback
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[model]; ok {
		return p
	}
	p, err := r.build(ctx, r.cfg.WithModel(model))
	if err != nil {
		r.log.Warn("model override unavailable, using default", "model", model, "error", err)
		return r.fallback
	}
	r.providers[model] = p
	return p
}
