// Package rill assembles a complete node from a Config: participant set,
// epoch clock, ledger, transport, key, node, and HTTP service.
package rill

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
	"time"

	"github.com/rillchain/rill/src/config"
	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/crypto"
	"github.com/rillchain/rill/src/crypto/keys"
	"github.com/rillchain/rill/src/epoch"
	"github.com/rillchain/rill/src/net"
	"github.com/rillchain/rill/src/node"
	"github.com/rillchain/rill/src/participant"
	"github.com/rillchain/rill/src/service"
	"github.com/sirupsen/logrus"
)

// Rill is a consensus node and its supporting components.
type Rill struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Ledger    consensus.Ledger
	Registry  *participant.Registry
	Clock     *epoch.Clock
	Service   *service.Service

	participants []*participant.Participant
	logger       *logrus.Entry
}

// NewRill instantiates a Rill around a Config. Call Init before Run.
func NewRill(config *config.Config) *Rill {
	return &Rill{
		Config: config,
		logger: config.Logger(),
	}
}

func (r *Rill) initClock() error {
	genesis := time.Unix(r.Config.GenesisTime, 0)
	r.Clock = epoch.NewClock(genesis, r.Config.EpochDuration)
	return nil
}

func (r *Rill) initParticipants() error {
	participantStore := participant.NewJSONParticipantSet(r.Config.DataDir)

	participants, err := participantStore.Participants()
	if err != nil {
		return err
	}

	if len(participants) < 1 {
		return fmt.Errorf("participants.json should define at least one participant")
	}

	r.participants = participants
	r.Registry = participant.NewRegistry(participants)

	return nil
}

func (r *Rill) initLedger() error {
	anchor := genesisAnchor(r.participants, r.Config.GenesisTime)

	if !r.Config.Store {
		r.Ledger = consensus.NewInmemLedger(anchor)

		r.logger.Debug("created new in-mem ledger")
	} else {
		var err error

		r.logger.WithField("path", r.Config.DatabaseDir).Debug("Attempting to load or create database")

		r.Ledger, err = consensus.LoadOrCreateBadgerLedger(anchor, r.Config.DatabaseDir)
		if err != nil {
			return err
		}

		if r.Ledger.NeedBootstrap() {
			r.logger.Debug("loaded badger ledger from existing database")
		} else {
			r.logger.Debug("created new badger ledger from fresh database")
		}
	}

	return nil
}

func (r *Rill) initTransport() error {
	transport, err := net.NewTCPTransport(
		r.Config.BindAddr,
		r.Config.AdvertiseAddr,
		r.Config.MaxPool,
		r.Config.TCPTimeout,
		r.Config.JoinTimeout,
		r.logger,
	)
	if err != nil {
		return err
	}

	r.Transport = transport

	return nil
}

func (r *Rill) initKey() error {
	if r.Config.Key == nil {
		keyfile := keys.NewSimpleKeyfile(r.Config.Keyfile())

		privKey, err := keyfile.ReadKey()
		if err != nil {
			r.logger.Warn("Cannot read private key from file", err)

			privKey, err = Keygen(r.Config.Keyfile())
			if err != nil {
				r.logger.Error("Cannot generate a new private key", err)

				return err
			}

			r.logger.Info("Created a new key:", keys.PublicKeyHex(&privKey.PublicKey))
		}

		r.Config.Key = privKey
	}
	return nil
}

func (r *Rill) initNode() error {
	key := r.Config.Key

	nodeConfig := node.NewConfig(
		r.Config.EpochDuration,
		r.Config.TCPTimeout,
		r.Config.JoinTimeout,
		r.Config.MaxOrphanVotes,
		r.Config.MaxForks,
		r.logger.Logger,
	)

	validator := node.NewValidator(key, r.Config.Moniker)

	r.logger.WithFields(logrus.Fields{
		"participants": r.Registry.Len(),
		"id":           validator.ID(),
	}).Debug("PARTICIPANTS")

	r.Node = node.NewNode(
		nodeConfig,
		validator,
		r.Registry,
		r.Clock,
		r.Ledger,
		r.Transport,
	)

	if err := r.Node.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	if r.Config.MaintenanceMode {
		r.logger.Debug("MaintenanceMode => Suspended")
		r.Node.Suspend()
	}

	return nil
}

func (r *Rill) initService() error {
	if !r.Config.NoService {
		r.Service = service.NewService(r.Config.ServiceAddr, r.Node, r.logger)
	}
	return nil
}

// Init initialises all the components in dependency order.
func (r *Rill) Init() error {
	if err := r.initClock(); err != nil {
		return err
	}

	if err := r.initParticipants(); err != nil {
		return err
	}

	if err := r.initLedger(); err != nil {
		return err
	}

	if err := r.initTransport(); err != nil {
		return err
	}

	if err := r.initKey(); err != nil {
		return err
	}

	if err := r.initNode(); err != nil {
		return err
	}

	if err := r.initService(); err != nil {
		return err
	}

	return nil
}

// Run starts the HTTP service, the transport, and the node's main loop. It
// blocks until the node shuts down.
func (r *Rill) Run() {
	if r.Service != nil {
		go r.Service.Serve()
	}

	go r.Transport.Listen()

	r.Node.Run(true)
}

// Keygen generates a new key and saves it to the given file. It refuses to
// overwrite an existing key.
func Keygen(keyfile string) (*ecdsa.PrivateKey, error) {
	simpleKeyfile := keys.NewSimpleKeyfile(keyfile)

	if _, err := simpleKeyfile.ReadKey(); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", keyfile)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}

// genesisAnchor derives the hash that the first block proposal extends. It
// commits to the initial participant set and the genesis timestamp, so that
// nodes configured differently cannot vote on each other's chains.
func genesisAnchor(participants []*participant.Participant, genesisTime int64) []byte {
	sorted := make([]*participant.Participant, len(participants))
	copy(sorted, participants)
	sort.Sort(participant.ByID(sorted))

	material := []byte(fmt.Sprintf("%d", genesisTime))
	for _, p := range sorted {
		material = append(material, []byte(p.PubKeyHex)...)
	}

	return crypto.SHA256(material)
}
