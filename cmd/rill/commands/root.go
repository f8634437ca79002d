package commands

import (
	"github.com/rillchain/rill/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for rill
var RootCmd = &cobra.Command{
	Use:              "rill",
	Short:            "rill consensus",
	TraverseChildren: true,
}
