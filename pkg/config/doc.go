// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each configuration type is parsed at most once per process and cached,
// so packages can declare their own config structs and load them
// independently without worrying about repeated environment parsing.
//
// Example:
//
//	type BillingConfig struct {
//		SecretKey string `env:"STRIPE_SECRET_KEY,required"`
//		PriceID   string `env:"STRIPE_PRICE_ID,required"`
//	}
//
//	var cfg BillingConfig
//	config.MustLoad(&cfg)
package config
