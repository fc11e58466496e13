package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/services/ambient"
	"yorkir-go/services/climate"
	"yorkir-go/services/config"
	"yorkir-go/services/dumpstore"
	"yorkir-go/services/heartbeat"
	"yorkir-go/services/httpapi"
	"yorkir-go/services/irlink"
	"yorkir-go/services/mqttentity"
	"yorkir-go/types"
	"yorkir-go/x/logx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the climate bridge",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg := config.Defaults()
		if path != "" {
			var err error
			if cfg, err = config.Load(path); err != nil {
				return err
			}
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "YAML config file (defaults when empty)")
}

func serve(ctx context.Context, cfg types.Config) error {
	b := bus.NewBus(32)

	climate.NewService(b.NewConnection("climate"), york.YorkECGS01(), nil).Start(ctx)
	go irlink.Start(ctx, b.NewConnection("irlink"))
	go ambient.NewService(b.NewConnection("ambient"), nil).Start(ctx)
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	var store *dumpstore.Store
	if cfg.Store.Enabled {
		var err error
		if store, err = dumpstore.Open(cfg.Store.Path, cfg.Store.Keep); err != nil {
			return err
		}
		defer store.Close()
		go store.Run(ctx, b.NewConnection("dumpstore"))
	}

	if cfg.MQTT.Enabled {
		var entity atomic.Pointer[mqttentity.Entity]
		br, err := mqttentity.Dial(cfg.MQTT, func() {
			if e := entity.Load(); e != nil {
				e.Resync()
			}
		})
		if err != nil {
			return err
		}
		defer br.Close(cfg.MQTT.BaseTopic)
		e := mqttentity.New(b.NewConnection("mqtt"), br, cfg.MQTT.BaseTopic)
		if err := e.Start(ctx); err != nil {
			return err
		}
		entity.Store(e)
	}

	errCh := make(chan error, 1)
	if cfg.HTTP.Enabled {
		h := httpapi.NewHandler(b.NewConnection("http"))
		if store != nil {
			h.WithHistory(store)
		}
		router := httpapi.NewRouter(h)
		go func() { errCh <- httpapi.Serve(ctx, cfg.HTTP.Listen, router) }()
	}

	config.NewConfigService().WithConfig(cfg).Start(ctx, b.NewConnection("config"))
	logx.Info("yorkir: running")

	select {
	case <-ctx.Done():
		logx.Info("yorkir: stopping")
		return nil
	case err := <-errCh:
		return err
	}
}
