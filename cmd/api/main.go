package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/txsociety/nano-harvester/internal/config"
	"github.com/txsociety/nano-harvester/pkg/api"
	"github.com/txsociety/nano-harvester/pkg/db"
	"github.com/txsociety/nano-harvester/pkg/rpc"
	"github.com/txsociety/nano-harvester/pkg/signing"
	"github.com/txsociety/nano-harvester/pkg/wallet"
	"github.com/txsociety/nano-harvester/pkg/webhook"
)

var Version = "dev"

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))
	slog.Info("running nano harvester", "version", Version, "log level", cfg.LogLevel.String())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	node, err := rpc.New(cfg.NodeRPCURL)
	if err != nil {
		slog.Error("node rpc connection", "error", err)
		os.Exit(1)
	}

	privateKey, err := cfg.PrivateKey()
	if err != nil {
		slog.Error("resolve private key", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	signer, err := signing.NewNodeSigner(ctx, node, privateKey, cfg.UseWorkPeers)
	if err != nil {
		slog.Error("signer creation", "error", err)
		os.Exit(1)
	}
	slog.Info("wallet account resolved", "account", signer.Account().String())

	var opts []wallet.Option
	if !cfg.DefaultRepresentative.IsZero() {
		opts = append(opts, wallet.WithRepresentative(cfg.DefaultRepresentative))
	}
	if cfg.ReceiveThreshold != nil {
		opts = append(opts, wallet.WithReceiveThreshold(cfg.ReceiveThreshold))
	}
	if cfg.MinSend != nil {
		opts = append(opts, wallet.WithMinSend(cfg.MinSend))
	}
	w := wallet.New(node, signer, opts...)

	var dbClient *db.Connection
	if len(cfg.PostgresURI) > 0 {
		dbClient, err = db.New(ctx, cfg.PostgresURI, signer.Account())
		if err != nil {
			slog.Error("db connection", "error", err)
			os.Exit(1)
		}
		defer dbClient.Close()
	}
	cancel()

	var wh *webhook.Client
	if len(cfg.WebhookEndpoint) > 0 {
		wh, err = webhook.NewClient(cfg.WebhookEndpoint)
		if err != nil {
			slog.Error("webhook connection", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	handler := api.NewHandler(w)
	if dbClient != nil {
		handler = handler.WithJournal(dbClient)
	}
	if wh != nil {
		handler = handler.WithWebhook(wh)
	}
	api.RegisterHandlers(mux, handler, cfg.Token)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", cfg.Port),
		Handler: mux,
	}
	go func() {
		slog.Info("running api server", "port", cfg.Port)
		err = srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-ch
	slog.Info("shut down", "signal", sig.String())
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("api stopped")
	cancel()
}
