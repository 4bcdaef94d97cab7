package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// defaultSeedCodes is the demo shipment used when no codes are given.
var defaultSeedCodes = []string{"10192769726"}

func newSeedCmd(app *cliApp) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed [tracking-code...]",
		Short: "Add tracking codes to monitor",
		Long: `Add tracking codes to the shipments table. Without arguments the demo code is used.
Seeding is skipped when shipments already exist unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := args
			if len(codes) == 0 {
				codes = defaultSeedCodes
			}
			out := cmd.OutOrStdout()

			return app.withStore(cmd.Context(), func(st cliStore) error {
				existing, err := st.CountShipments(cmd.Context())
				if err != nil {
					return errors.Wrap(err, "count shipments")
				}
				if existing > 0 && !force {
					printWarn(out, "база уже содержит %d отправлений, пропускаем (используйте --force)", existing)
					return nil
				}

				n, err := st.CreateShipments(cmd.Context(), codes)
				if err != nil {
					return errors.Wrap(err, "create shipments")
				}
				printSuccess(out, "добавлено %d из %d трек-номеров", n, len(codes))
				if n > 0 {
					printInfo(out, "запустите `monitor-cli sync`, чтобы получить статусы из СДЭК")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even when shipments already exist")
	return cmd
}
