package order

import (
	"go.uber.org/zap"

	"canteen/internal/config"
	"canteen/internal/order/controller"
	"canteen/internal/order/service"
	"canteen/internal/order/usecase"
	"canteen/internal/payment"
	"canteen/internal/viewsync"
)

type Module struct {
	Gateway  *usecase.OrderGateway
	Payments *payment.Controller
	Orders   *controller.OrderController
	Checkout *controller.CheckoutController
}

func NewModule(
	repo usecase.OrderRepository,
	pricer usecase.MenuPricer,
	views viewsync.Invalidator,
	loader *viewsync.Loader,
	ledger payment.Ledger,
	cfg *config.Config,
	logger *zap.Logger,
) *Module {
	gateway := usecase.NewOrderGateway(
		repo,
		pricer,
		service.NewIdentifierService(),
		views,
		loader,
		cfg.Order,
		logger,
	)

	payments := payment.NewController(gateway, ledger, cfg.Payment, payment.RealClock(), logger)

	return &Module{
		Gateway:  gateway,
		Payments: payments,
		Orders:   controller.NewOrderController(gateway, payments, cfg.Sync.PollInterval, logger),
		Checkout: controller.NewCheckoutController(payments, logger),
	}
}
