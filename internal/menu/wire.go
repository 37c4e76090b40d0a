package menu

import (
	"go.uber.org/zap"

	"canteen/internal/menu/controller"
	"canteen/internal/menu/service"
	"canteen/internal/viewsync"
)

type Module struct {
	Controller *controller.MenuController
	Service    *service.MenuService
}

func NewModule(repo service.Repository, loader *viewsync.Loader, logger *zap.Logger) *Module {
	svc := service.NewMenuService(repo, loader)
	return &Module{
		Controller: controller.NewMenuController(svc, logger),
		Service:    svc,
	}
}
