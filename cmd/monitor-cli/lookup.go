package main

import (
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type lookupResult struct {
	UUID         string `json:"uuid"`
	Number       string `json:"number,omitempty"`
	TrackingCode string `json:"cdek_number,omitempty"`
	LastStatus   string `json:"last_status,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newLookupCmd(app *cliApp) *cobra.Command {
	var (
		seed  bool
		pause time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lookup <order-uuid>...",
		Short: "Resolve CDEK order UUIDs to tracking numbers",
		Long: `Look up orders by the UUID returned at order creation and print their CDEK numbers.
Orders that are still being registered have no number yet. With --seed the
resolved numbers are added to the monitored shipments.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client := app.deps.newLookup(app.cfg)

			results := make([]lookupResult, 0, len(args))
			var codes []string
			for i, id := range args {
				if i > 0 && pause > 0 {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(pause):
					}
				}
				res := lookupResult{UUID: id}
				rec, err := client.FetchShipmentByUUID(cmd.Context(), id)
				if err != nil {
					res.Error = err.Error()
					results = append(results, res)
					continue
				}
				res.Number = rec.Number
				res.TrackingCode = rec.TrackingCode
				if n := len(rec.Statuses); n > 0 {
					res.LastStatus = lastStatusLine(rec.Statuses[n-1])
				}
				if rec.TrackingCode != "" {
					codes = append(codes, rec.TrackingCode)
				}
				results = append(results, res)
			}

			if app.jsonOutput() {
				if err := printJSON(out, results); err != nil {
					return err
				}
			} else {
				t := newTable("UUID", "NUMBER", "CDEK NUMBER", "LAST STATUS")
				for _, r := range results {
					if r.Error != "" {
						printError(out, "%s: %s", r.UUID, r.Error)
						continue
					}
					code := r.TrackingCode
					if code == "" {
						code = "(еще не присвоен)"
					}
					t.addRow(r.UUID, r.Number, code, r.LastStatus)
				}
				t.render(out)
				printInfo(out, "с номерами СДЭК: %d из %d", len(codes), len(args))
			}

			if !seed || len(codes) == 0 {
				return nil
			}
			return app.withStore(cmd.Context(), func(st cliStore) error {
				n, err := st.CreateShipments(cmd.Context(), codes)
				if err != nil {
					return errors.Wrap(err, "create shipments")
				}
				printSuccess(out, "добавлено %d трек-номеров", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "add resolved tracking numbers to the monitored shipments")
	cmd.Flags().DurationVar(&pause, "pause", 500*time.Millisecond, "delay between carrier requests")
	return cmd
}

func lastStatusLine(s models.RawStatus) string {
	line := s.Name
	if s.Code != "" {
		line += " (" + s.Code + ")"
	}
	if s.DateTime != "" {
		line += " " + s.DateTime
	}
	return line
}
