package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/inkypi/battmon/pkg/battery"
	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/uptime"
)

var (
	conf        config.Config
	monitor     *battery.Monitor
	tracker     *uptime.Tracker
	statsLogger *StatsLogger
)

// Options configures a daemon run.
type Options struct {
	ConfigPath      string
	UnixSocketPath  string
	ListenAddr      string // optional TCP listener for the web settings layer
	UptimeStatePath string
	AllowNonRoot    bool
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/battery", getBattery)
	router.POST("/reprobe", reprobe)
	router.GET("/uptime", getUptime)
	router.PUT("/full-charge", setFullCharge)
	router.GET("/config", getConfig)
	router.PUT("/log-system-stats", setLogSystemStats)
	router.PUT("/stats-schedule", setStatsSchedule)
	router.PUT("/sensor-address", setSensorAddress)
	router.PUT("/shunt-ohms", setShuntOhms)
	router.GET("/version", getVersion)

	return router
}

func Run(opts Options) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(opts.ConfigPath)
	if err != nil {
		// Malformed overrides fail fast, before any probing.
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	if conf.PortableFallback() {
		battery.RegisterBackend("portable", battery.PortableFactory)
	}

	monitor = battery.NewMonitor(conf, logrus.StandardLogger())
	tracker = uptime.New(opts.UptimeStatePath)
	statsLogger = NewStatsLogger(monitor, tracker, logrus.StandardLogger())

	if conf.LogSystemStats() {
		if err := statsLogger.Start(conf.StatsSchedule()); err != nil {
			logrus.Fatalf("failed to start stats logger: %v", err)
		}
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
			restartStatsLogger()
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", opts.UnixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", opts.UnixSocketPath)
		err = os.Chmod(opts.UnixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Optionally also serve on TCP for the web settings page.
	if opts.ListenAddr != "" {
		tl, err := net.Listen("tcp", opts.ListenAddr)
		if err != nil {
			logrus.Fatal(err)
		}
		go func() {
			logrus.Infof("http server listening on %s", tl.Addr().String())
			if err := srv.Serve(tl); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Fatal(err)
			}
		}()
	}

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping stats logger")
	statsLogger.Stop()

	// Persist the final runtime slice so accumulated on-time is not
	// lost across restarts.
	if _, err := tracker.RecordSlice(); err != nil {
		logrus.Errorf("failed to record final runtime slice: %v", err)
	}

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}

// restartStatsLogger applies the current logSystemStats toggle and
// schedule. Called after config changes.
func restartStatsLogger() {
	statsLogger.Stop()
	if !conf.LogSystemStats() {
		logrus.Info("periodic stats logging is disabled")
		return
	}
	if err := statsLogger.Start(conf.StatsSchedule()); err != nil {
		logrus.Errorf("failed to restart stats logger: %v", err)
	}
}
