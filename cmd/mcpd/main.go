package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hongjun500/mcpd-go/internal/bus/redisstream"
	"github.com/hongjun500/mcpd-go/internal/config"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/server"
	"github.com/hongjun500/mcpd-go/internal/storage"
	"github.com/hongjun500/mcpd-go/internal/transport"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("MAIN")

func main() {
	cfgPath := flag.String("config", "", "path to mcpd.toml (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}

	srv := server.New(cfg, nil)

	if cfg.Storage.Enabled {
		store, err := storage.OpenToolStore(cfg.Storage.Path)
		if err != nil {
			log.Errorf("open tool store at %s: %v", cfg.Storage.Path, err)
			os.Exit(1)
		}
		defer store.Close()
		srv.Registry().SetStore(store)
		n := srv.Registry().LoadAll()
		log.Infof("restored %d persisted tools", n)
	}

	if cfg.Relay.Enabled {
		relay := redisstream.New(cfg.Relay.Addr, cfg.Relay.DB, cfg.Relay.Stream)
		defer relay.Close()
		srv.Bridge().SetRelay(relay)
	}

	t := cfg.Transports
	if t.TCP.Enabled {
		srv.AddTransport(&transport.TCPTransport{
			Addr:        t.TCP.Addr,
			MaxConns:    t.TCP.MaxConns,
			MDNS:        t.TCP.MDNS,
			MDNSService: t.TCP.MDNSService,
		})
	}
	if t.WebSocket.Enabled {
		srv.AddTransport(&transport.WebSocketTransport{
			Addr: t.WebSocket.Addr,
			Path: t.WebSocket.Path,
		})
	}
	if t.Serial.Enabled {
		srv.AddTransport(&transport.SerialTransport{
			Config: transport.SerialConfig{
				Device:   t.Serial.Device,
				Baud:     t.Serial.Baud,
				DataBits: t.Serial.DataBits,
				StopBits: t.Serial.StopBits,
				Parity:   t.Serial.Parity,
			},
			Media: transport.KindSerial,
		})
	}
	if t.USB.Enabled {
		// 宿主侧 CDC-ACM 设备就是一个串口节点
		srv.AddTransport(&transport.SerialTransport{
			Config: transport.SerialConfig{Device: t.USB.Device},
			Media:  transport.KindUSB,
		})
	}

	if cfg.Observe.Enabled {
		go func() {
			if err := observe.StartHTTP(cfg.Observe.Addr, srv); err != nil {
				log.Errorf("observe http: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("%s %s starting", cfg.Server.DeviceName, cfg.Server.Version)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("server exit: %v", err)
		os.Exit(1)
	}
	log.Infof("shutdown")
}
