package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safing/trackguard/base/log"
	"github.com/safing/trackguard/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring service",
	RunE:  cmdRun,
}

func cmdRun(cmd *cobra.Command, args []string) error {
	svcCfg, err := loadConfig()
	if err != nil {
		return err
	}
	svcCfg.AutoStart = true

	instance, err := service.New(version, svcCfg)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	if err := instance.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	// Wait for shutdown signal.
	signalCh := make(chan os.Signal, 1)
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	<-signalCh

	fmt.Println(" <INTERRUPT>")
	if !instance.Stop() {
		return fmt.Errorf("shutdown failed")
	}
	return nil
}

func loadConfig() (*service.ServiceConfig, error) {
	svcCfg, err := service.LoadServiceConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := svcCfg.Init(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := log.SetupSLog(svcCfg.LogLevel); err != nil {
		return nil, err
	}
	return svcCfg, nil
}
