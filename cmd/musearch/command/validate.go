package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/musearch/bridge/internal/config"
)

// NewValidateConfigCmd loads and validates the configuration document
// without opening any collaborator connection, exiting non-zero with
// the aggregated error report on failure.
func NewValidateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the index-definition configuration document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readConfigFile(viper.GetString(keyConfigFile))
			if err != nil {
				return err
			}
			cfg, err := config.Load(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d type(s) defined\n", len(cfg.Types))
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "/config/config.json", "path to the index-definition configuration document")
	viper.BindPFlag(keyConfigFile, cmd.Flags().Lookup("config"))
	return cmd
}
