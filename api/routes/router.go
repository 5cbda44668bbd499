package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/librarydesk-backend/api/controllers"
	"github.com/angelmondragon/librarydesk-backend/api/middleware"
	"github.com/angelmondragon/librarydesk-backend/internal/cart"
	"github.com/angelmondragon/librarydesk-backend/internal/catalog"
	"github.com/angelmondragon/librarydesk-backend/internal/checkout"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/internal/returns"
	"github.com/angelmondragon/librarydesk-backend/pkg/config"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/redis"
)

// Services bundles what the handlers call into.
type Services struct {
	Catalog  catalog.Service
	Members  members.Service
	Loans    loans.Service
	Carts    cart.Service
	Checkout checkout.Service
	Returns  returns.Service
}

// Infra carries the shared clients. Redis and Gatherer may be nil.
type Infra struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		middleware.ClientIdentity(),
	)

	deps := map[string]controllers.Pinger{"db": infra.DB}
	var (
		idempotencyStore redis.IdempotencyStore
		sharedLimiter    middleware.WindowLimiter
	)
	if infra.Redis != nil {
		deps["redis"] = infra.Redis
		idempotencyStore = infra.Redis
		sharedLimiter = infra.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps, logg))
	})

	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitOptions{
			RPS:    cfg.HTTP.RateLimitRPS,
			Burst:  cfg.HTTP.RateLimitBurst,
			Shared: sharedLimiter,
		}, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.BookList(svc.Catalog, logg))
			r.Post("/", controllers.BookCreate(svc.Catalog, logg))
			r.Get("/popular", controllers.BookPopular(svc.Catalog, logg))
			r.Get("/recent", controllers.BookRecent(svc.Catalog, logg))
			r.Get("/{bookId}", controllers.BookGet(svc.Catalog, logg))
			r.Put("/{bookId}", controllers.BookUpdate(svc.Catalog, logg))
			r.Delete("/{bookId}", controllers.BookDelete(svc.Catalog, logg))
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", controllers.MemberList(svc.Members, logg))
			r.Post("/", controllers.MemberCreate(svc.Members, logg))
			r.Get("/overdue", controllers.MemberOverdue(svc.Members, logg))
			r.Get("/{memberId}", controllers.MemberGet(svc.Members, logg))
			r.Put("/{memberId}", controllers.MemberUpdate(svc.Members, logg))
			r.Delete("/{memberId}", controllers.MemberDelete(svc.Members, logg))
			r.Get("/{memberId}/loans", controllers.MemberLoans(svc.Loans, logg))
			r.Post("/{memberId}/return-all", controllers.MemberReturnAll(svc.Returns, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(svc.Carts, logg))
			r.Get("/{cartId}", controllers.CartGet(svc.Carts, logg))
			r.Delete("/{cartId}", controllers.CartDelete(svc.Carts, logg))
			r.Post("/{cartId}/items", controllers.CartAddItem(svc.Carts, logg))
			r.Post("/{cartId}/groups", controllers.CartAddGroup(svc.Carts, logg))
			r.Delete("/{cartId}/nodes/{index}", controllers.CartRemoveNode(svc.Carts, logg))
			r.Post("/{cartId}/clear", controllers.CartClear(svc.Carts, logg))
			r.Post("/{cartId}/preview", controllers.CartPreview(svc.Checkout, logg))
			r.Post("/{cartId}/checkout", controllers.CartCheckout(svc.Checkout, logg))
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.LoanList(svc.Loans, logg))
			r.Get("/overdue", controllers.LoanOverdue(svc.Loans, logg))
			r.Get("/{loanId}", controllers.LoanGet(svc.Loans, logg))
			r.Post("/{loanId}/return", controllers.LoanReturn(svc.Returns, logg))
			r.Post("/{loanId}/renew", controllers.LoanRenew(svc.Loans, logg))
		})
	})

	return r
}
