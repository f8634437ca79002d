package node

import (
	"testing"
	"time"

	"github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/epoch"
	"github.com/sirupsen/logrus"
)

// Config holds the tunable parameters of a node.
type Config struct {
	EpochDuration  time.Duration `mapstructure:"epoch-duration"`
	TCPTimeout     time.Duration `mapstructure:"timeout"`
	JoinTimeout    time.Duration `mapstructure:"join_timeout"`
	MaxOrphanVotes int           `mapstructure:"max-orphan-votes"`
	MaxForks       int           `mapstructure:"max-forks"`
	Logger         *logrus.Logger
}

// NewConfig creates a Config.
func NewConfig(epochDuration time.Duration,
	timeout time.Duration,
	joinTimeout time.Duration,
	maxOrphanVotes int,
	maxForks int,
	logger *logrus.Logger) *Config {

	return &Config{
		EpochDuration:  epochDuration,
		TCPTimeout:     timeout,
		JoinTimeout:    joinTimeout,
		MaxOrphanVotes: maxOrphanVotes,
		MaxForks:       maxForks,
		Logger:         logger,
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		EpochDuration:  epoch.DefaultDuration,
		TCPTimeout:     1000 * time.Millisecond,
		JoinTimeout:    10000 * time.Millisecond,
		MaxOrphanVotes: consensus.DefaultMaxOrphanVotes,
		MaxForks:       consensus.DefaultMaxChains,
		Logger:         logger,
	}
}

// TestConfig returns a Config with a logger that writes to the test runner.
func TestConfig(t *testing.T) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t)
	return config
}
