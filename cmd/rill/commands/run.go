package commands

import (
	"github.com/rillchain/rill/src/rill"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a rill node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runRill,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runRill(cmd *cobra.Command, args []string) error {
	engine := rill.NewRill(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Optional file to write log output to")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.BindAddr, "Listen IP:Port for rill node")
	cmd.Flags().StringP("advertise", "a", _config.AdvertiseAddr, "Advertise IP:Port for rill node")
	cmd.Flags().DurationP("timeout", "t", _config.TCPTimeout, "TCP Timeout")
	cmd.Flags().DurationP("join-timeout", "j", _config.JoinTimeout, "Join Timeout")
	cmd.Flags().Int("max-pool", _config.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Disable the HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")

	// Consensus
	cmd.Flags().Int64("genesis-time", _config.GenesisTime, "Unix timestamp, in seconds, of the start of epoch 0")
	cmd.Flags().Duration("epoch-duration", _config.EpochDuration, "Length of an epoch")
	cmd.Flags().Int("max-orphan-votes", _config.MaxOrphanVotes, "Max number of buffered votes for unknown proposals")
	cmd.Flags().Int("max-forks", _config.MaxForks, "Max number of concurrently tracked candidate chains")
	cmd.Flags().Bool("maintenance-mode", _config.MaintenanceMode, "Start the node in a suspended, non-voting state")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"rill.DataDir":         _config.DataDir,
		"rill.BindAddr":        _config.BindAddr,
		"rill.AdvertiseAddr":   _config.AdvertiseAddr,
		"rill.NoService":       _config.NoService,
		"rill.ServiceAddr":     _config.ServiceAddr,
		"rill.MaxPool":         _config.MaxPool,
		"rill.Store":           _config.Store,
		"rill.LogLevel":        _config.LogLevel,
		"rill.Moniker":         _config.Moniker,
		"rill.GenesisTime":     _config.GenesisTime,
		"rill.EpochDuration":   _config.EpochDuration,
		"rill.TCPTimeout":      _config.TCPTimeout,
		"rill.JoinTimeout":     _config.JoinTimeout,
		"rill.MaxOrphanVotes":  _config.MaxOrphanVotes,
		"rill.MaxForks":        _config.MaxForks,
		"rill.MaintenanceMode": _config.MaintenanceMode,
	}

	if _config.Store {
		logFields["rill.DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/rill.toml (.json, .yaml also work)
	viper.SetConfigName("rill")          // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
