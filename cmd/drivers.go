package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngochaukiet2005/shuttle-dispatch/app"
	"github.com/ngochaukiet2005/shuttle-dispatch/config"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

var driverAdd model.Driver

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "Driver related commands",
}

var driversLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List active drivers",
	RunE:  runDriversLs,
}

var driversAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a driver",
	RunE:  runDriversAdd,
}

func init() {
	driversAddCmd.Flags().StringVar(&driverAdd.ID, "id", "", "driver id")
	driversAddCmd.Flags().StringVar(&driverAdd.Name, "name", "", "driver name")
	driversAddCmd.Flags().StringVar(&driverAdd.VehicleID, "vehicle", "", "vehicle id")
	driversAddCmd.Flags().IntVar(&driverAdd.Capacity, "capacity", model.DefaultCapacity, "seat count")
	driversCmd.AddCommand(driversLsCmd, driversAddCmd)
	rootCmd.AddCommand(driversCmd)
}

func withService(fn func(svc *app.Service) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()
	return fn(svc)
}

func runDriversLs(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		drivers, err := svc.Store.FindActive(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range drivers {
			fmt.Printf("%s\t%s\t%d seats\t%s\n", d.ID, d.Name, d.Capacity, d.Status)
		}
		return nil
	})
}

func runDriversAdd(cmd *cobra.Command, args []string) error {
	if driverAdd.ID == "" {
		return fmt.Errorf("--id is required")
	}
	return withService(func(svc *app.Service) error {
		d := driverAdd
		d.Status = model.DriverActive
		if err := d.Validate(); err != nil {
			return err
		}
		if err := svc.Store.CreateDriver(cmd.Context(), &d); err != nil {
			return err
		}
		fmt.Printf("driver %s registered\n", d.ID)
		return nil
	})
}
