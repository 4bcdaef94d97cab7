package main

import (
	"strconv"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/logger"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	"github.com/spf13/cobra"
)

func newShipmentsCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shipments",
		Aliases: []string{"ls"},
		Short:   "List shipments with their current status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return app.withStore(cmd.Context(), func(st cliStore) error {
				details, err := monitoring.New(st, nil, nil, 0, logger.Named("monitoring")).ShipmentDetails(cmd.Context())
				if err != nil {
					return err
				}
				if app.jsonOutput() {
					return printJSON(out, details)
				}
				if len(details) == 0 {
					printInfo(out, "отправлений нет")
					return nil
				}

				t := newTable("ID", "TRACKING", "STATUS", "UPDATED", "PROBLEM")
				for _, d := range details {
					status, updated := "-", "-"
					if d.CurrentStatus != nil {
						status = *d.CurrentStatus
					}
					if d.CurrentStatusDatetime != nil {
						updated = d.CurrentStatusDatetime.Format(time.DateTime)
					}
					problem := ""
					if d.Problem {
						problem = "yes"
					}
					t.addRow(strconv.FormatInt(d.ID, 10), d.TrackingCode, status, updated, problem)
				}
				t.render(out)
				return nil
			})
		},
	}
	cmd.AddCommand(newHistoryCmd(app))
	return cmd
}

func newHistoryCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "history <tracking-code>",
		Short: "Show the stored status history of a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return app.withStore(cmd.Context(), func(st cliStore) error {
				statuses, err := monitoring.New(st, nil, nil, 0, logger.Named("monitoring")).ShipmentStatuses(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if app.jsonOutput() {
					return printJSON(out, statuses)
				}
				t := newTable("TIME", "CODE", "STATUS")
				for _, s := range statuses {
					t.addRow(s.StatusDatetime.Format(time.DateTime), s.StatusCode, s.StatusText)
				}
				t.render(out)
				return nil
			})
		},
	}
}

func newStatsCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show shipment statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return app.withStore(cmd.Context(), func(st cliStore) error {
				stats, err := monitoring.New(st, nil, nil, 0, logger.Named("monitoring")).Statistics(cmd.Context())
				if err != nil {
					return err
				}
				if app.jsonOutput() {
					return printJSON(out, stats)
				}
				t := newTable("TOTAL", "IN TRANSIT", "DELIVERED", "PROBLEMATIC")
				t.addRow(strconv.Itoa(stats.Total), strconv.Itoa(stats.InTransit), strconv.Itoa(stats.Delivered), strconv.Itoa(stats.Problematic))
				t.render(out)
				return nil
			})
		},
	}
}
