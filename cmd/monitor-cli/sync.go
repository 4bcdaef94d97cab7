package main

import (
	"strconv"

	"github.com/BearBump/DeliveryMonitor/internal/logger"
	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [tracking-code]",
		Short: "Fetch carrier statuses and store new ones",
		Long: `Sync one shipment, or every known shipment when no code is given.
Unknown tracking codes are registered before the sync.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return app.withStore(cmd.Context(), func(st cliStore) error {
				s := syncer.New(st, app.deps.newCarrier(app.cfg)).
					WithSettings(0, app.cfg.Monitor.SyncConcurrency).
					WithLogger(logger.Named("syncer"))

				var results []models.SyncResult
				if len(args) == 1 {
					res, err := s.SyncOne(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					results = []models.SyncResult{res}
				} else {
					all, err := s.SyncAll(cmd.Context())
					if err != nil {
						return errors.Wrap(err, "list shipments")
					}
					results = all
				}

				summary := models.Summarize(results)
				if app.jsonOutput() {
					return printJSON(out, summary)
				}

				t := newTable("TRACKING", "RESULT", "NEW", "TOTAL", "ERROR")
				for _, r := range summary.Details {
					result := "ok"
					if !r.Success {
						result = "failed"
					}
					t.addRow(r.TrackingCode, result, strconv.Itoa(r.NewStatuses), strconv.Itoa(r.TotalStatuses), r.Error)
				}
				t.render(out)

				if summary.Failed > 0 {
					printWarn(out, "обновлено %d из %d, ошибок %d, новых статусов %d",
						summary.UpdatedSuccessfully, summary.TotalShipments, summary.Failed, summary.TotalNewStatuses)
					return nil
				}
				printSuccess(out, "обновлено %d из %d, новых статусов %d",
					summary.UpdatedSuccessfully, summary.TotalShipments, summary.TotalNewStatuses)
				return nil
			})
		},
	}
}
