// Command tracker follows one order from the terminal. It polls the order
// and refetches as soon as the backend pushes a change.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"canteen/internal/apiclient"
	"canteen/internal/config"
	"canteen/internal/dto"
	"canteen/internal/identity"
	"canteen/internal/infrastructure/logger"
	"canteen/internal/viewsync"
)

const reconnectDelay = 3 * time.Second

func main() {
	cfg, err := config.LoadTracker(os.Args[1:])
	if err != nil {
		log.Fatalf("tracker: %v", err)
	}

	zapLogger, err := logger.New(config.LogConfig{Level: cfg.LogLevel, Encoding: "console", Service: "canteen-tracker"})
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	actor := identity.Actor{ID: cfg.UserID, Name: cfg.UserName, Role: identity.RoleCustomer}
	client := apiclient.New(cfg.APIURL, actor, cfg.Timeout)

	view := viewsync.NewView("order-status", func(ctx context.Context) (dto.OrderDTO, error) {
		order, _, err := client.GetOrder(ctx, cfg.OrderRef)
		if err != nil {
			return dto.OrderDTO{}, err
		}
		return *order, nil
	}, cfg.PollInterval, zapLogger)

	var last string
	view.OnRefresh(func(s viewsync.Snapshot[dto.OrderDTO]) {
		line := statusLine(s.Data)
		if line != last {
			fmt.Println(line)
			last = line
		}
	})

	if err := view.Mount(ctx); err != nil {
		zapLogger.Warn("first fetch failed, retrying on next poll", zap.Error(err))
	}
	defer view.Unmount()

	go follow(ctx, client, cfg.OrderRef, view, zapLogger)

	<-ctx.Done()
}

// follow keeps the push subscription alive. Polling covers the gaps while
// it reconnects.
func follow(ctx context.Context, client *apiclient.Client, ref string, view *viewsync.View[dto.OrderDTO], logger *zap.Logger) {
	for {
		err := client.Subscribe(ctx, ref, func(msg viewsync.Message) {
			switch msg.Type {
			case viewsync.MessageOrderUpdated, viewsync.MessageInvalidate:
				view.Invalidate(msg.Version)
			}
		})
		if ctx.Err() != nil {
			return
		}
		logger.Debug("push channel lost, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func statusLine(o dto.OrderDTO) string {
	line := fmt.Sprintf("%s  %-10s %3d%%", o.OrderNumber, o.Status, o.Progress)
	switch o.Status {
	case "preparing":
		line += fmt.Sprintf("  ready in ~%d min", o.EstimatedTime)
	case "ready":
		line += "  collect at the counter, barcode " + o.Barcode
	}
	return line
}
