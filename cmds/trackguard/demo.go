package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/safing/trackguard/service"
)

var (
	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a bounded number of monitoring cycles and print the final status",
		RunE:  cmdDemo,
	}

	demoCycles int
)

func init() {
	demoCmd.Flags().IntVar(&demoCycles, "cycles", 10, "number of cycles to run")
}

func cmdDemo(cmd *cobra.Command, args []string) error {
	svcCfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The demo drives cycles itself, without the loop or the api server.
	svcCfg.AutoStart = false
	svcCfg.ListenAddr = ""

	instance, err := service.New(version, svcCfg)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	if err := instance.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer instance.Stop()

	mon := instance.Monitor()
	for i := range demoCycles {
		if err := mon.RunCycle(); err != nil {
			return fmt.Errorf("cycle %d: %w", i+1, err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(mon.Status())
}
