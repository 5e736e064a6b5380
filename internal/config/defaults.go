package config

import "github.com/spf13/viper"

// setDefaults sets all default values that match the reference
// implementation's defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("run_standalone", false)
	v.SetDefault("enforce_freeze", true)

	// Protocol fee defaults
	v.SetDefault("fee_default", 10)                 // drops
	v.SetDefault("transaction_fee_base", 10)        // fee units per reference tx
	v.SetDefault("fee_account_reserve", 10_000_000) // 10 native units
	v.SetDefault("fee_owner_reserve", 2_000_000)    // 2 native units

	// NodeDB defaults
	v.SetDefault("node_db.type", "memory")
	v.SetDefault("node_db.path", "./db/nodestore")
	v.SetDefault("node_db.cache_size", 16384)
	v.SetDefault("node_db.cache_age", 3600)
	v.SetDefault("node_db.compressor", "lz4")
	v.SetDefault("node_db.compression_level", 1)

	// Relational index defaults
	v.SetDefault("relational_db.driver", "sqlite")
	v.SetDefault("relational_db.dsn", "file:ledgerdb?mode=memory&cache=shared")
}
