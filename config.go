package drover

import (
	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("droverrc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.drover")

	setupDefaults()

	viper.ReadInConfig()

	viper.SetEnvPrefix("drover")
	viper.AutomaticEnv()
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"power":           100,    // Percentage of host cores used when a run does not say
		"available_cores": 0,      // Core count the resolver works against; 0 means runtime.NumCPU
		"max_concurrency": 0,      // Cap on in-flight unit sends per round; 0 means worker count
		"codec":           "json", // Wire codec spoken to workers: json or msgpack
		"verbose":         false,
		"history_size":    32, // Retained per-run telemetry entries
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose": "v",
		"power":   "p",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}
