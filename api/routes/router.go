package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthstay/hearthstay-backend/api/controllers"
	webhookcontrollers "github.com/hearthstay/hearthstay-backend/api/controllers/webhooks"
	"github.com/hearthstay/hearthstay-backend/api/middleware"
	bookingsvc "github.com/hearthstay/hearthstay-backend/internal/bookings"
	checkoutsvc "github.com/hearthstay/hearthstay-backend/internal/checkout"
	pmsvc "github.com/hearthstay/hearthstay-backend/internal/paymentmethods"
	propsvc "github.com/hearthstay/hearthstay-backend/internal/properties"
	subsvc "github.com/hearthstay/hearthstay-backend/internal/subscriptions"
	stripewebhook "github.com/hearthstay/hearthstay-backend/internal/webhooks/stripe"
	"github.com/hearthstay/hearthstay-backend/pkg/config"
	"github.com/hearthstay/hearthstay-backend/pkg/db"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/redis"
	"github.com/hearthstay/hearthstay-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	propertyService propsvc.Service,
	bookingService bookingsvc.Service,
	checkoutService checkoutsvc.Service,
	paymentMethodService pmsvc.Service,
	subscriptionService subsvc.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Route("/v1/properties", func(r chi.Router) {
			r.Get("/", controllers.ListProperties(propertyService, logg))
			r.Get("/{propertyId}", controllers.GetProperty(propertyService, logg))
		})
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/bookings", func(r chi.Router) {
			r.Get("/", controllers.ListBookings(bookingService, logg))
			r.Get("/{bookingId}", controllers.GetBooking(bookingService, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(bookingService, logg))
		})

		r.Post("/v1/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/v1/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.ListPaymentMethods(paymentMethodService, logg))
			r.Post("/", controllers.AttachPaymentMethod(paymentMethodService, logg))
			r.Delete("/{paymentMethodId}", controllers.DetachPaymentMethod(paymentMethodService, logg))
		})

		r.Route("/v1/subscriptions", func(r chi.Router) {
			r.Get("/plans", controllers.ListPlans(subscriptionService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleHost), logg))
				r.Get("/", controllers.GetSubscription(subscriptionService, logg))
				r.Post("/", controllers.Subscribe(subscriptionService, logg))
				r.Post("/cancel", controllers.CancelSubscription(subscriptionService, logg))
			})
		})
	})

	return r
}
