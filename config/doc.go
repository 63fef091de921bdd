// Package config loads run configuration and melos.yaml scripts.
//
// Load uses Viper to read a YAML file, then overlays environment variables
// with the MELOS_ prefix, mapping underscores to nesting
// (MELOS_EXEC_CONCURRENCY sets exec.concurrency). A .env file, when found,
// is loaded first and never overrides variables already set.
//
// # Usage
//
//	var cfg config.Config
//	err := config.Load("melos", &cfg, config.WithConfigFile("melos.yaml"))
//
// Scripts are read from the scripts section of melos.yaml:
//
//	scripts, err := config.LoadScripts("melos.yaml")
//	spec := scripts["test"].FilterSpec(cliFilters)
package config
