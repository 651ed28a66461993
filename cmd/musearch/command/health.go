package command

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

const defaultAddress = "http://localhost:80/"

// NewHealthCmd polls a running instance's health endpoint.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health [address]",
		Short: "Health check the internal HTTP surface.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("too many arguments provided, expected 0 or 1")
			}
			address := defaultAddress
			if len(args) == 1 {
				address = args[0]
			}
			healthAddress := address + "health"
			resp, err := http.Get(healthAddress)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("%s responded with status code %d, expected %d", healthAddress, resp.StatusCode, http.StatusNoContent)
			}
			log.Printf("%s ok", healthAddress)
			return nil
		},
	}
}
