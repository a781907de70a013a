package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/golang-migrate/graphmigrate/internal/cli"
)

func init() {
	pflag.Usage = cli.Usage
	// options end at the command, the rest belongs to its flag set
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		logrus.Fatalf("cannot bind flags: %v", err)
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(viper.GetString("config.source"))
	if viper.GetString("config.file") != "" {
		viper.SetConfigName(viper.GetString("config.file"))
		if err := viper.ReadInConfig(); err != nil {
			logrus.Fatalf("cannot load configuration: %v", err)
		}
	}

	// logrus formatter
	if viper.GetString("log.format") == "json" {
		logrus.SetFormatter(new(logrus.JSONFormatter))
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}

func options() cli.Options {
	return cli.Options{
		DatabaseURL:      viper.GetString("database.url"),
		DatabaseUser:     viper.GetString("database.user"),
		DatabasePassword: viper.GetString("database.password"),
		DatabaseName:     viper.GetString("database.name"),
		Source:           viper.GetString("source"),
		Path:             viper.GetString("path"),
		Label:            viper.GetString("label"),
		Extension:        viper.GetString("extension"),
		ChecksumPolicy:   viper.GetString("checksum.policy"),
		Verbose:          viper.GetBool("verbose"),
	}
}

func main() {
	if *flagVersion {
		fmt.Fprintln(os.Stderr, Version)
		os.Exit(0)
	}
	if *flagHelp {
		cli.Usage()
		os.Exit(0)
	}

	cli.Main(logrus.StandardLogger(), options(), pflag.Args())
}
