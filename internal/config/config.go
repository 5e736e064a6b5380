// Package config loads the daemon configuration: protocol fee defaults, the
// standalone flag and the storage sections, with defaults matching the
// reference implementation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore"
	"github.com/LeJamon/goledgerd/internal/storage/relationaldb"
)

// Config is the loaded daemon configuration.
type Config struct {
	Standalone    bool
	EnforceFreeze bool

	FeeDefault         uint64
	TransactionFeeBase uint32
	FeeAccountReserve  uint32
	FeeOwnerReserve    uint32

	NodeDB struct {
		Backend          string
		Path             string
		CacheSize        int
		CacheAgeSeconds  int
		Compressor       string
		CompressionLevel int
	}

	RelationalDB struct {
		Driver string
		DSN    string
	}
}

// Load reads configuration from the given file (optional) over the built-in
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		Standalone:         v.GetBool("run_standalone"),
		EnforceFreeze:      v.GetBool("enforce_freeze"),
		FeeDefault:         v.GetUint64("fee_default"),
		TransactionFeeBase: v.GetUint32("transaction_fee_base"),
		FeeAccountReserve:  v.GetUint32("fee_account_reserve"),
		FeeOwnerReserve:    v.GetUint32("fee_owner_reserve"),
	}

	c.NodeDB.Backend = v.GetString("node_db.type")
	c.NodeDB.Path = v.GetString("node_db.path")
	c.NodeDB.CacheSize = v.GetInt("node_db.cache_size")
	c.NodeDB.CacheAgeSeconds = v.GetInt("node_db.cache_age")
	c.NodeDB.Compressor = v.GetString("node_db.compressor")
	c.NodeDB.CompressionLevel = v.GetInt("node_db.compression_level")

	c.RelationalDB.Driver = v.GetString("relational_db.driver")
	c.RelationalDB.DSN = v.GetString("relational_db.dsn")

	if c.FeeDefault == 0 {
		return nil, fmt.Errorf("fee_default must be positive")
	}
	if c.TransactionFeeBase == 0 {
		return nil, fmt.Errorf("transaction_fee_base must be positive")
	}
	return c, nil
}

// LedgerConfig projects the values consumed by the ledger core.
func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		FeeDefault:               c.FeeDefault,
		TransactionFeeBase:       c.TransactionFeeBase,
		FeeAccountReserve:        c.FeeAccountReserve,
		FeeOwnerReserve:          c.FeeOwnerReserve,
		RunStandalone:            c.Standalone,
		DisableFreezeEnforcement: !c.EnforceFreeze,
	}
}

// NodeStoreConfig projects the node-store section.
func (c *Config) NodeStoreConfig() *nodestore.Config {
	cfg := nodestore.DefaultConfig()
	if c.NodeDB.Backend != "" {
		cfg.Backend = c.NodeDB.Backend
	}
	if c.NodeDB.Path != "" {
		cfg.Path = c.NodeDB.Path
	}
	if c.NodeDB.CacheSize > 0 {
		cfg.CacheSize = c.NodeDB.CacheSize
	}
	if c.NodeDB.CacheAgeSeconds > 0 {
		cfg.CacheTTL = time.Duration(c.NodeDB.CacheAgeSeconds) * time.Second
	}
	if c.NodeDB.Compressor != "" {
		cfg.Compressor = c.NodeDB.Compressor
	}
	if c.NodeDB.CompressionLevel > 0 {
		cfg.CompressionLevel = c.NodeDB.CompressionLevel
	}
	return cfg
}

// RelationalConfig projects the relational-db section.
func (c *Config) RelationalConfig() *relationaldb.Config {
	cfg := relationaldb.DefaultConfig()
	if c.RelationalDB.Driver != "" {
		cfg.Driver = c.RelationalDB.Driver
	}
	if c.RelationalDB.DSN != "" {
		cfg.DSN = c.RelationalDB.DSN
	}
	return cfg
}
