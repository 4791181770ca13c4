package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgwcamk/radiosim/cmd/radiosim/config"
)

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate a scenario configuration without running it",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				color.Red("invalid configuration: %v", err)
				return err
			}

			var numSlices, numUsers int
			for _, bs := range cfg.BaseStations {
				numSlices += len(bs.Slices)
				for _, sl := range bs.Slices {
					for _, u := range sl.Users {
						count := u.Count
						if count <= 0 {
							count = 1
						}
						numUsers += count
					}
				}
			}

			color.Green("configuration is valid")
			fmt.Printf("  basestations: %d\n", len(cfg.BaseStations))
			fmt.Printf("  slices:       %d\n", numSlices)
			fmt.Printf("  users:        %d\n", numUsers)
			fmt.Printf("  ttis:         %d\n", cfg.TTIs)
			return nil
		},
	}
}
