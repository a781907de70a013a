package main

import (
	"github.com/spf13/pflag"

	"github.com/golang-migrate/graphmigrate/internal/cli"
)

const (
	// configuration defaults support local development (i.e. "go run ...")
	defaultConfigDirectory = "/cli/config"
	defaultLogFormat       = "text"
)

var (
	// define flag overrides
	flagHelp           = pflag.Bool("help", false, "Print usage")
	flagVersion        = pflag.Bool("version", false, "Print version")
	flagLoggingVerbose = pflag.Bool("verbose", false, "Print verbose logging")
	flagLogFormat      = pflag.String("log.format", defaultLogFormat, "log format, text or json")

	flagDatabaseURL      = pflag.String("database.url", cli.DefaultOptions.DatabaseURL, "database connection string (driver://url)")
	flagDatabaseName     = pflag.String("database.name", cli.DefaultOptions.DatabaseName, "name of the database, empty for the server default")
	flagDatabaseUser     = pflag.String("database.user", cli.DefaultOptions.DatabaseUser, "database username")
	flagDatabasePassword = pflag.String("database.password", cli.DefaultOptions.DatabasePassword, "database password")

	flagSource = pflag.String("source", "", "Location of the migrations (driver://url)")
	flagPath   = pflag.String("path", "", "Shorthand for -source=file://path")

	flagLabel          = pflag.String("label", cli.DefaultOptions.Label, "label of the migration chain nodes")
	flagExtension      = pflag.String("extension", cli.DefaultOptions.Extension, "migration file extension")
	flagChecksumPolicy = pflag.String("checksum.policy", cli.DefaultOptions.ChecksumPolicy, "checksum seed policy, zero or legacy")

	flagConfigDirectory = pflag.String("config.source", defaultConfigDirectory, "directory of the configuration file")
	flagConfigFile      = pflag.String("config.file", "", "configuration file name without extension")
)
