package config

import (
	"log/slog"
	"math/big"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/txsociety/nano-harvester/pkg/core"
	"github.com/txsociety/nano-harvester/pkg/signing"
)

type Config struct {
	Port        int        `env:"PORT" envDefault:"8081"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	PostgresURI string     `env:"POSTGRES_URI"`
	Token       string     `env:"TOKEN,required"`
	NodeRPCURL  string     `env:"NODE_RPC_URL,required"`
	// Either a seed plus index or a raw private key selects the account.
	WalletSeed            string       `env:"WALLET_SEED"`
	WalletIndex           uint32       `env:"WALLET_INDEX" envDefault:"0"`
	WalletPrivateKey      string       `env:"WALLET_PRIVATE_KEY"`
	DefaultRepresentative core.Address `env:"DEFAULT_REPRESENTATIVE"`
	UseWorkPeers          bool         `env:"USE_WORK_PEERS" envDefault:"false"`
	ReceiveThresholdRaw   string       `env:"RECEIVE_THRESHOLD_RAW"`
	MinSendRaw            string       `env:"MIN_SEND_RAW"`
	WebhookEndpoint       string       `env:"WEBHOOK_ENDPOINT"`
	ReceiveThreshold      *big.Int
	MinSend               *big.Int
}

func Load() Config {
	var (
		c  Config
		ll slog.Level
	)
	if err := env.ParseWithFuncs(&c, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(ll): func(v string) (interface{}, error) {
			var level slog.Level
			err := level.UnmarshalText([]byte(v))
			return level, err
		},
		reflect.TypeOf(core.Address{}): func(v string) (interface{}, error) {
			addr, err := core.ParseAddress(v)
			if err != nil {
				return nil, err
			}
			return addr, nil
		},
	}); err != nil {
		panic("parse config error: " + err.Error())
	}
	if c.WalletSeed == "" && c.WalletPrivateKey == "" {
		panic("parse config error: WALLET_SEED or WALLET_PRIVATE_KEY is required")
	}
	var err error
	if c.ReceiveThresholdRaw != "" {
		if c.ReceiveThreshold, err = core.ParseRawAmount(c.ReceiveThresholdRaw); err != nil {
			panic("parse config error: RECEIVE_THRESHOLD_RAW: " + err.Error())
		}
	}
	if c.MinSendRaw != "" {
		if c.MinSend, err = core.ParseRawAmount(c.MinSendRaw); err != nil {
			panic("parse config error: MIN_SEND_RAW: " + err.Error())
		}
	}
	return c
}

// PrivateKey resolves the configured key material into a private key.
func (c Config) PrivateKey() (string, error) {
	if c.WalletPrivateKey != "" {
		return strings.ToUpper(c.WalletPrivateKey), nil
	}
	return signing.DerivePrivateKey(c.WalletSeed, c.WalletIndex)
}
