// Package modelgatecmder
package modelgatecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/modelgate/cmd/modelgate/chat"
	servecmder "github.com/papercomputeco/modelgate/cmd/modelgate/serve"
	versioncmder "github.com/papercomputeco/modelgate/cmd/version"
)

const modelgateLongDesc string = `Modelgate is a rate-limited gateway for LLM inference backends.

Run the gateway using:
  modelgate serve      Run the gateway server
  modelgate chat       Interactive chat through a running gateway`

const modelgateShortDesc string = "Modelgate - LLM inference gateway"

func NewModelgateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modelgate",
		Short: modelgateShortDesc,
		Long:  modelgateLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML config file")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
