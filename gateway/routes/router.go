package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"arcadia/gateway/middleware"
)

// Scopes required by the mutating staking routes.
const (
	ScopeStakingWrite = "staking:write"
	ScopeStakingClaim = "staking:claim"
	ScopeStakingAdmin = "staking:admin"
)

// Rate-limit keys the router looks up in the configured limiter.
const (
	RateKeyStakingRead  = "staking-read"
	RateKeyStakingWrite = "staking-write"
	RateKeyAdmin        = "admin"
)

type Config struct {
	Node          *NodeClient
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

// New assembles the REST facade over the staking node.
func New(cfg Config) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	staking := &stakingRoutes{node: cfg.Node}

	r.Route("/v1/staking", func(sr chi.Router) {
		if obs != nil {
			sr.Use(obs.Middleware("staking"))
		}

		sr.Group(func(gr chi.Router) {
			if cfg.RateLimiter != nil {
				gr.Use(cfg.RateLimiter.Middleware(RateKeyStakingRead))
			}
			gr.Get("/pools", staking.listPools)
			gr.Get("/emission", staking.emission)
			gr.Get("/pools/{pool}/balance", staking.poolBalance)
			gr.Get("/pools/{pool}/claimable", staking.claimable)
			gr.Get("/pools/{pool}/accounts/{account}/balance", staking.userBalance)
			gr.Get("/pools/{pool}/accounts/{account}/boost", staking.boost)
			gr.Get("/history", staking.history)
		})

		sr.Group(func(gr chi.Router) {
			if cfg.RateLimiter != nil {
				gr.Use(cfg.RateLimiter.Middleware(RateKeyStakingWrite))
			}
			if cfg.Authenticator != nil {
				gr.With(cfg.Authenticator.Middleware(ScopeStakingWrite)).Post("/stake", staking.stake)
				gr.With(cfg.Authenticator.Middleware(ScopeStakingWrite)).Post("/unstake", staking.unstake)
				gr.With(cfg.Authenticator.Middleware(ScopeStakingClaim)).Post("/claim", staking.claim)
			} else {
				gr.Post("/stake", staking.stake)
				gr.Post("/unstake", staking.unstake)
				gr.Post("/claim", staking.claim)
			}
		})
	})

	r.Route("/v1/admin", func(sr chi.Router) {
		if obs != nil {
			sr.Use(obs.Middleware("admin"))
		}
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware(RateKeyAdmin))
		}
		if cfg.Authenticator != nil {
			sr.Use(cfg.Authenticator.Middleware(ScopeStakingAdmin))
		}
		sr.Post("/pause", staking.pause)
		sr.Post("/resume", staking.resume)
		sr.Post("/shutdown", staking.shutdown)
		sr.Post("/price", staking.setPrice)
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r, nil
}
