// Command fletes-api serves the dashboard, review actions and operation
// triggers over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/api"
	"github.com/farhaan/fletes-reconcile-system/internal/bootstrap"
)

func main() {
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	svc, err := bootstrap.New(sigCtx)
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	defer svc.Close()
	logger := svc.Logger

	router := api.NewServer(svc.App, svc.Dashboard, svc.Metrics, logger).
		AllowOrigins(svc.Config.CORSOrigins).
		Router()
	srv := &http.Server{
		Addr:              svc.Config.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithField("addr", srv.Addr).Info("listening")

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown")
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}
