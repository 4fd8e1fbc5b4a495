package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"sync"
	"syscall"
	"time"

	"hotspotd/constant"
	v1 "hotspotd/internal/api/v1"
	"hotspotd/internal/app"
	api "hotspotd/pkg/hotspotd-api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const pidFileLocation = constant.RunDir + "/hotspotd.pid"

func getPIDPath(pid int) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
}

func checkPIDFile() error {
	data, err := os.ReadFile(pidFileLocation)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.New("invalid PID file content")
	}

	currPID, _ := getPIDPath(os.Getpid())
	filePID, _ := getPIDPath(pid)
	if path.Base(currPID) == path.Base(filePID) {
		return fmt.Errorf("process %d is already running", pid)
	}

	_ = os.Remove(pidFileLocation)
	return nil
}

func createPIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(pidFileLocation, []byte(strconv.Itoa(pid)), 0644)
}

func removePIDFile() {
	_ = os.Remove(pidFileLocation)
}

func setupUnixSocket(apiRouter chi.Router, errChan chan error) (*http.Server, error) {
	if err := os.Remove(api.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing UNIX socket: %w", err)
	}

	socket, err := net.Listen("unix", api.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("error while serving UNIX socket: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	srv := &http.Server{
		Handler: r,
	}

	go func() {
		if e := srv.Serve(socket); e != nil && e != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve UNIX socket: %v", e)
		}
		socket.Close()
		os.Remove(api.SocketPath)
	}()

	return srv, nil
}

func setupHTTP(core *app.App, apiRouter chi.Router, errChan chan error) (*http.Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d",
		core.Config().HTTPAPI.Host.Address, core.Config().HTTPAPI.Host.Port))
	if err != nil {
		return nil, fmt.Errorf("error while listening HTTP: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	srv := &http.Server{
		Handler: r,
	}

	go func() {
		if e := srv.Serve(listener); e != nil && e != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve HTTP: %v", e)
		}
		listener.Close()
	}()
	return srv, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().
		Str("version", constant.Version).
		Str("commit", constant.Commit).
		Msg("starting hotspotd daemon")

	if err := checkPIDFile(); err != nil {
		log.Fatal().Err(err).Msg("failed to check PID file")
	}
	if err := createPIDFile(); err != nil {
		log.Fatal().Err(err).Msg("failed to create PID file")
	}
	defer removePIDFile()

	core, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	if level, err := zerolog.ParseLevel(core.Config().LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	// feed the API log endpoint from the same stream
	log.Logger = log.Logger.Hook(core.Logs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiHandler := v1.NewHandler(core)
	apiRouter := v1.NewRouter(apiHandler)

	errChan := make(chan error, 1)
	srvUnix, err := setupUnixSocket(apiRouter, errChan)
	if err != nil {
		log.Fatal().Err(err).Msg("setupUnixSocket error")
	}
	log.Info().Msgf("Starting UNIX socket on %s", api.SocketPath)

	var srvHTTP *http.Server
	if core.Config().HTTPAPI.Enabled {
		srvHTTP, err = setupHTTP(core, apiRouter, errChan)
		if err != nil {
			log.Fatal().Err(err).Msg("setupHTTP error")
		}
		log.Info().Msgf("Starting HTTP server on %s:%d",
			core.Config().HTTPAPI.Host.Address, core.Config().HTTPAPI.Host.Port)
	}

	if core.Config().Hotspot.AutoStart {
		if err := core.StartHotspot(ctx); err != nil {
			log.Error().Err(err).Msg("autostart failed")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	var once sync.Once
	shutdown := func() {
		log.Info().Msg("shutting down service")
		if err := core.StopHotspot(context.Background()); err != nil && !errors.Is(err, app.ErrNotRunning) {
			log.Error().Err(err).Msg("failed to stop hotspot")
		}
		cancel()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if srvHTTP != nil {
			if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
				if err == context.DeadlineExceeded {
					log.Warn().Msg("HTTP server shutdown timed out; some connections may not have closed cleanly")
				} else {
					log.Error().Err(err).Msg("HTTP server shutdown error")
				}
			}
		}
		if err := srvUnix.Shutdown(shutdownCtx); err != nil {
			if err == context.DeadlineExceeded {
				log.Warn().Msg("UNIX socket server shutdown timed out; some connections may not have closed cleanly")
			} else {
				log.Error().Err(err).Msg("UNIX socket server shutdown error")
			}
		}
	}

	for {
		select {
		case err := <-errChan:
			if err != nil {
				log.Error().Err(err).Msg("server error")
			}
			once.Do(shutdown)
			log.Info().Msg("service stopped")
			return
		case sig := <-sigChan:
			log.Info().Msgf("received signal: %v", sig)
			switch sig {
			case os.Interrupt, syscall.SIGTERM:
				once.Do(shutdown)
				log.Info().Msg("service stopped")
				return
			case syscall.SIGHUP:
				if err := core.LoadConfig(); err != nil {
					log.Error().Err(err).Msg("failed to reload config")
				}
			}
		}
	}
}
