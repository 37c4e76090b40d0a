package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type TrackerConfig struct {
	APIURL       string
	OrderRef     string
	UserID       string
	UserName     string
	PollInterval time.Duration
	Timeout      time.Duration
	LogLevel     string
}

// LoadTracker reads tracker settings from flags, then TRACKER_* environment
// variables, then defaults. The order may also be given as the first
// positional argument.
func LoadTracker(args []string) (*TrackerConfig, error) {
	fs := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	fs.String("api-url", "http://localhost:8080", "canteen backend base URL")
	fs.String("order", "", "order id, order number or barcode to follow")
	fs.String("user-id", "", "customer id sent as X-User-Id")
	fs.String("user-name", "", "customer name sent as X-User-Name")
	fs.Duration("poll", 5*time.Second, "status poll interval")
	fs.Duration("timeout", 10*time.Second, "per-request timeout")
	fs.String("log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	cfg := &TrackerConfig{
		APIURL:       v.GetString("api-url"),
		OrderRef:     strings.TrimSpace(v.GetString("order")),
		UserID:       v.GetString("user-id"),
		UserName:     v.GetString("user-name"),
		PollInterval: v.GetDuration("poll"),
		Timeout:      v.GetDuration("timeout"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.OrderRef == "" && fs.NArg() > 0 {
		cfg.OrderRef = strings.TrimSpace(fs.Arg(0))
	}

	if cfg.OrderRef == "" {
		return nil, fmt.Errorf("an order reference is required (--order or first argument)")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	return cfg, nil
}
