// rosterctl answers holiday and pay questions from the command line, using
// the same calendar and pay engine as the server. It needs no database.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/config"
	"github.com/warp/roster-engine/factory"
	"github.com/warp/roster-engine/pay"
)

// app is the state shared by subcommands, built in PersistentPreRunE.
type app struct {
	holidayPath string
	timeZone    string

	holidays   *factory.HolidayConfig
	calc       *calendar.Calculator
	classifier *pay.Classifier
	location   *time.Location
	autoClose  pay.AutoClosePolicy
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Public holidays and shift pay for Australian rosters",
		Long:          `rosterctl resolves state public holidays, classifies days and prices shifts with the roster engine's rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.holidayPath, "config", "", "holiday config file, YAML or JSON (default: HOLIDAY_CONFIG or built-in)")
	root.PersistentFlags().StringVar(&a.timeZone, "tz", "", "venue time zone (default: TIMEZONE)")

	root.AddCommand(a.statesCmd())
	root.AddCommand(a.holidaysCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.upcomingCmd())
	root.AddCommand(a.classifyCmd())
	root.AddCommand(a.payCmd())
	root.AddCommand(a.exportCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("config") {
		a.holidayPath = cfg.Holidays.ConfigPath
	}
	if a.timeZone != "" {
		cfg.Holidays.TimeZone = a.timeZone
	}
	a.location, err = cfg.Location()
	if err != nil {
		return err
	}

	f := factory.NewHolidayFactory()
	if a.holidayPath == "" {
		a.holidays, err = f.Default()
	} else {
		a.holidays, err = f.LoadFile(a.holidayPath)
	}
	if err != nil {
		return fmt.Errorf("loading holidays: %w", err)
	}
	if cfg.Holidays.DefaultState != "" {
		a.holidays.DefaultState = cfg.Holidays.DefaultState
	}

	a.calc, err = a.holidays.Calculator(cfg.Holidays.CacheSize)
	if err != nil {
		return err
	}
	a.classifier = pay.NewClassifier(a.calc, a.location)
	a.autoClose = cfg.AutoClosePolicy()
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
