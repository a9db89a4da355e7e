package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/roster-engine/calendar"
	"github.com/warp/roster-engine/factory"
	"github.com/warp/roster-engine/pay"
	"gopkg.in/yaml.v3"
)

// localLayout is accepted for instants without an offset; they are read in
// the venue time zone.
const localLayout = "2006-01-02T15:04"

func (a *app) statesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List configured states",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, code := range a.calc.Rules().States() {
				st, _ := a.calc.Rules().State(code)
				marker := " "
				if code == a.calc.DefaultState() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-4s %-30s %d rules\n", marker, code, st.Name, len(st.Rules))
			}
			return nil
		},
	}
}

func (a *app) holidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "holidays [state]",
		Aliases: []string{"list"},
		Short:   "List public holidays for a state and year",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, _ := cmd.Flags().GetInt("year")
			if year == 0 {
				year = time.Now().In(a.location).Year()
			}
			state := a.calc.DefaultState()
			if len(args) == 1 {
				state = calendar.NormalizeState(args[0])
			}
			a.warnUnknown(cmd, state)

			holidays, err := a.calc.HolidaysForYear(state, year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := "rules"
			if a.calc.Overrides().Has(state, year) {
				source = "override"
			}
			fmt.Fprintf(out, "%s %d (%s)\n", state, year, source)
			for _, h := range holidays {
				fmt.Fprintf(out, "  %s  %-9s  %-30s %s\n",
					h.DateString(), h.Date.Weekday(), h.Name, calendar.Category(h))
			}
			return nil
		},
	}
	cmd.Flags().IntP("year", "y", 0, "year (default: current year)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <date>",
		Short: "Check whether a date (YYYY-MM-DD) is a public holiday",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := calendar.ParseDate(args[0])
			if err != nil {
				return err
			}
			state := a.stateFlag(cmd)

			h, err := a.calc.HolidayDetails(date, state)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if h == nil {
				fmt.Fprintf(out, "%s is not a public holiday in %s\n", calendar.FormatDate(date), state)
				return nil
			}
			fmt.Fprintf(out, "%s is %s in %s\n", calendar.FormatDate(date), h.Name, state)
			return nil
		},
	}
	cmd.Flags().StringP("state", "s", "", "state code (default: configured default)")
	return cmd
}

func (a *app) upcomingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show the next public holidays",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			state := a.stateFlag(cmd)
			today := calendar.DateOf(time.Now().In(a.location))

			holidays, err := a.calc.Upcoming(state, today, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range holidays {
				fmt.Fprintf(out, "%s  %-30s %s\n", h.DateString(), h.Name, calendar.DaysUntilLabel(today, h.Date))
			}
			return nil
		},
	}
	cmd.Flags().StringP("state", "s", "", "state code (default: configured default)")
	cmd.Flags().IntP("count", "n", 3, "number of holidays")
	return cmd
}

func (a *app) classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <instant>",
		Short: "Classify an instant as public holiday, Sunday, Saturday or weekday",
		Long:  `Instants are RFC 3339 (2025-04-25T09:00:00+10:00) or local time (2025-04-25T09:00) in the venue time zone.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := a.parseInstant(args[0])
			if err != nil {
				return err
			}
			dt, err := a.classifier.Classify(at, a.stateFlag(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dt)
			return nil
		},
	}
	cmd.Flags().StringP("state", "s", "", "state code (default: configured default)")
	return cmd
}

func (a *app) payCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Price a shift",
		Long: `Price a shift between --in and --out. Rates left unset (or zero) fall back
to the weekday rate. With --hours-per-week, hours beyond a fifth of it are
paid at --overtime (or the day's rate). --auto-close prices the shift as the
auto-close sweep would, ignoring --out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := rateCardFromFlags(cmd)
			if err != nil {
				return err
			}
			inStr, _ := cmd.Flags().GetString("in")
			clockIn, err := a.parseInstant(inStr)
			if err != nil {
				return fmt.Errorf("--in: %w", err)
			}

			dt, err := a.classifier.Classify(clockIn, a.stateFlag(cmd))
			if err != nil {
				return err
			}

			var result pay.Result
			if auto, _ := cmd.Flags().GetBool("auto-close"); auto {
				result, err = a.autoClose.Compute(card, dt, clockIn)
			} else {
				outStr, _ := cmd.Flags().GetString("out")
				clockOut, perr := a.parseInstant(outStr)
				if perr != nil {
					return fmt.Errorf("--out: %w", perr)
				}
				result, err = pay.ComputePay(card, dt, clockIn, clockOut)
			}
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringP("state", "s", "", "state code (default: configured default)")
	cmd.Flags().String("in", "", "clock-in instant")
	cmd.Flags().String("out", "", "clock-out instant")
	cmd.Flags().Bool("auto-close", false, "price as an auto-closed shift")
	cmd.Flags().String("weekday", "", "weekday hourly rate")
	cmd.Flags().String("saturday", "", "Saturday hourly rate")
	cmd.Flags().String("sunday", "", "Sunday hourly rate")
	cmd.Flags().String("holiday", "", "public holiday hourly rate")
	cmd.Flags().String("overtime", "", "overtime hourly rate")
	cmd.Flags().String("hours-per-week", "", "contracted hours per week")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("weekday")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective holiday configuration",
		Long:  `Export the loaded rules and overrides as a document that --config accepts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("output")

			doc := factory.ToDoc(a.calc.DefaultState(), a.calc.Rules(), a.calc.Overrides())

			var data []byte
			var err error
			switch strings.ToLower(format) {
			case "yaml", "yml":
				data, err = yaml.Marshal(doc)
			case "json":
				data, err = json.MarshalIndent(doc, "", "  ")
			default:
				return fmt.Errorf("unknown format %q (yaml or json)", format)
			}
			if err != nil {
				return err
			}

			if path == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "yaml", "yaml or json")
	cmd.Flags().StringP("output", "o", "", "file to write (default: stdout)")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func (a *app) stateFlag(cmd *cobra.Command) string {
	state, _ := cmd.Flags().GetString("state")
	state = calendar.NormalizeState(state)
	if state == "" {
		state = a.calc.DefaultState()
	}
	a.warnUnknown(cmd, state)
	return state
}

func (a *app) warnUnknown(cmd *cobra.Command, state string) {
	if !a.calc.KnownState(state) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s has no holiday rules or overrides\n", state)
	}
}

func (a *app) parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, s, a.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: use RFC 3339 or %s", s, localLayout)
	}
	return t, nil
}

type rateFlag struct {
	flag   string
	target *decimal.NullDecimal
}

func rateCardFromFlags(cmd *cobra.Command) (pay.RateCard, error) {
	var card pay.RateCard
	fields := []rateFlag{
		{"weekday", &card.WeekdayRate},
		{"saturday", &card.SaturdayRate},
		{"sunday", &card.SundayRate},
		{"holiday", &card.PublicHolidayRate},
		{"overtime", &card.OvertimeRate},
		{"hours-per-week", &card.DefaultHoursPerWeek},
	}

	for _, f := range fields {
		v, _ := cmd.Flags().GetString(f.flag)
		if v == "" {
			continue
		}
		rate, err := pay.ParseRate(v)
		if err != nil {
			return pay.RateCard{}, fmt.Errorf("--%s: %w", f.flag, err)
		}
		*f.target = rate
	}
	return card, nil
}

func printResult(out io.Writer, r pay.Result) {
	fmt.Fprintf(out, "Day:       %s\n", r.DayType)
	fmt.Fprintf(out, "Shift:     %s - %s\n", r.ClockIn.Format(time.RFC3339), r.ClockOut.Format(time.RFC3339))
	fmt.Fprintf(out, "Hours:     %s\n", r.DurationHours.StringFixed(2))
	fmt.Fprintf(out, "Rate:      %s\n", r.Rate.StringFixed(2))
	if r.OvertimeHours.IsPositive() {
		fmt.Fprintf(out, "Ordinary:  %s h\n", r.OrdinaryHours.StringFixed(2))
		fmt.Fprintf(out, "Overtime:  %s h at %s\n", r.OvertimeHours.StringFixed(2), r.OvertimeRate.StringFixed(2))
	}
	if r.AutoClosed {
		fmt.Fprintln(out, "Auto-closed")
	}
	fmt.Fprintf(out, "Total:     %s\n", r.TotalPay.StringFixed(2))
}
