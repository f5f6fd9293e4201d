package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngochaukiet2005/shuttle-dispatch/app"
	"github.com/ngochaukiet2005/shuttle-dispatch/config"
	coredispatch "github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

var dispatchSlot string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch round for a time slot",
	RunE:  runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchSlot, "slot", "", "time slot in RFC3339, defaults to now")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slot := time.Now()
	if dispatchSlot != "" {
		slot, err = time.Parse(time.RFC3339, dispatchSlot)
		if err != nil {
			return fmt.Errorf("parse slot: %w", err)
		}
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("dispatch-command").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Engine.Dispatch(cmd.Context(), slot, coredispatch.TriggerAdmin)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	fmt.Printf("slot %s: %d trips, %d assigned, %d still waiting\n",
		res.Slot.Format(time.RFC3339), len(res.Trips), res.Assigned, res.Unassigned)
	for _, t := range res.Trips {
		fmt.Printf("  trip %s driver %s (%d passengers, %d stops)\n",
			t.ID, t.DriverID, len(t.RequestIDs()), len(t.Route))
	}
	for id, derr := range res.Errors {
		fmt.Printf("  driver %s failed: %v\n", id, derr)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("dispatch encountered errors")
	}
	return nil
}
