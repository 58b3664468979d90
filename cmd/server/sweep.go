package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one retention sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.retention.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"notifications":  res.Notifications,
				"twoFactorCodes": res.TwoFactorCodes,
				"deviceSessions": res.DeviceSessions,
				"bruteforceRows": res.BruteforceRows,
				"resetTokens":    res.ResetTokens,
			}).Info("sweep done")
			return nil
		},
	}
}
