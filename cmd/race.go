package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Tom-Deng/rally/internal/config"
	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/race"
)

var raceConfigPath string

var raceCmd = &cobra.Command{
	Use:   "race",
	Short: "Run a race against a target cluster",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(raceConfigPath)
		if err != nil {
			logrus.Fatalf("loading race config: %v", err)
		}

		client := esclient.NewHTTPClient(cfg.TargetURL)
		report, err := race.Run(context.Background(), cfg, client)
		if err != nil {
			logrus.Fatalf("race failed: %v", err)
		}

		logrus.Infof("race %s complete: %d clients, %d throughput samples",
			report.RaceID, report.ClientCount, len(report.Throughput))
		for _, p := range report.Throughput {
			logrus.Infof("  %s [%s] @%.3fs: %.2f %s/s", p.OperationName, p.SampleType, p.RelativeTime, p.OpsPerSecond, p.Unit)
		}
	},
}

func init() {
	raceCmd.Flags().StringVar(&raceConfigPath, "config", "", "Path to the race YAML config")
	raceCmd.MarkFlagRequired("config")
}
