package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inkypi/battmon/pkg/daemon"
	"github.com/inkypi/battmon/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the battmon daemon.
	alwaysAllowNonRootAccess = false
	// listenAddr is the optional TCP address for the web settings layer.
	listenAddr = ""
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run battmon daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("battmon daemon starting")
			return daemon.Run(daemon.Options{
				ConfigPath:      configPath,
				UnixSocketPath:  unixSocketPath,
				ListenAddr:      listenAddr,
				UptimeStatePath: uptimeStatePath,
				AllowNonRoot:    alwaysAllowNonRootAccess,
			})
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")
	f.StringVar(&listenAddr, "listen", "",
		"Additionally serve the HTTP API on this TCP address (e.g. :8080). Off by default.")
	f.StringVar(&uptimeStatePath, "uptime-state", uptimeStatePath,
		"Path of the uptime tracker state file.")

	return cmd
}
