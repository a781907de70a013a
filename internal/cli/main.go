package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/graphmigrate"
	"github.com/golang-migrate/graphmigrate/database"
	"github.com/golang-migrate/graphmigrate/source"
)

const (
	createUsage = `create [-dir D] [-ext E] [-version V] NAME
	   Create an empty migration file V<version>__NAME.E in directory D.
	   Without -version the last segment of the highest local version is incremented.`
	upUsage       = `up           Apply all pending migrations`
	pendingUsage  = `pending      List the migrations up would apply`
	statusUsage   = `status       List applied, pending and drifted migrations`
	validateUsage = `validate [-fail-fast] [-summary]
	   Compare the migration chain with the source.
	   Use -fail-fast to stop at the first failing check, -summary to print counts only`
	deleteUsage = `delete [-dry-run] [-f] TARGET
	   Remove an applied migration (version or file name) from the chain and relink its neighbours.
	   The migration's changes are not reverted. Use -dry-run to print the plan only, -f to bypass confirmation`
	dropUsage = `drop [-f]    Drop everything inside database, the migration chain included
	Use -f to bypass confirmation`
)

func handleSubCmdHelp(help bool, usage string, flagSet *flag.FlagSet) {
	if help {
		fmt.Fprintln(os.Stderr, usage)
		flagSet.PrintDefaults()
		os.Exit(0)
	}
}

func newFlagSetWithHelp(name string) (*flag.FlagSet, *bool) {
	flagSet := flag.NewFlagSet(name, flag.ExitOnError)
	helpPtr := flagSet.Bool("help", false, "Print help information")
	return flagSet, helpPtr
}

// set main log
var log = NewLog(logrus.StandardLogger(), false)

// Usage prints the command overview.
func Usage() {
	fmt.Fprintf(os.Stderr,
		`Usage: migrate OPTIONS COMMAND [arg...]
       migrate [ --version | --help ]

Options:
  --source           Location of the migrations (driver://url)
  --path             Shorthand for --source=file://path
  --database.url     Run migrations against this database (driver://url)
  --database.user    Database user, overrides the URL's
  --database.password
  --database.name    Database to use instead of the server default
  --label            Label of the migration chain nodes (default %s)
  --extension        Migration file extension (default cypher)
  --checksum.policy  Checksum seed policy, zero or legacy (default zero)
  --log.format       text or json
  --config.file      Configuration file name without extension
  --verbose          Print verbose logging
  --version          Print version
  --help             Print usage

Options can be set in the environment, e.g. DATABASE_URL, CHECKSUM_POLICY.

Commands:
  %s
  %s
  %s
  %s
  %s
  %s
  %s
  version      Print the current migration version

Source drivers: `+strings.Join(source.List(), ", ")+`
Database drivers: `+strings.Join(database.List(), ", ")+"\n",
		"__Neo4jMigration", createUsage, upUsage, pendingUsage, statusUsage, validateUsage, deleteUsage, dropUsage)
}

func printUsageAndExit() {
	Usage()

	// If a command is not found we exit with a status 2 to match the behavior
	// of flag.Parse() with flag.ExitOnError when parsing an invalid flag.
	os.Exit(2)
}

// Main function of a cli application. args are the command and its
// arguments, without global options.
func Main(logger *logrus.Logger, opts Options, args []string) {
	log = NewLog(logger, opts.Verbose)

	if len(args) < 1 {
		printUsageAndExit()
	}
	command, args := args[0], args[1:]
	startTime := time.Now()

	if command == "create" {
		createFlagSet, help := newFlagSetWithHelp("create")
		extPtr := createFlagSet.String("ext", opts.Extension, "File extension")
		dirPtr := createFlagSet.String("dir", opts.Path, "Directory to place file in (default: current working directory)")
		versionPtr := createFlagSet.String("version", "", "Version of the new migration (default: next version)")

		if err := createFlagSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*help, createUsage, createFlagSet)

		if createFlagSet.NArg() == 0 {
			log.fatalErr(errEmptyName)
		}
		name := strings.Join(createFlagSet.Args(), " ")

		if _, err := createCmd(*dirPtr, *extPtr, *versionPtr, name, true); err != nil {
			log.fatalErr(err)
		}
		return
	}

	// initialize migrate
	// don't catch migraterErr here and let each command decide
	// how it wants to handle the error
	var migrater *migrate.Migrate
	config, migraterErr := opts.Config()
	if migraterErr == nil {
		migrater, migraterErr = migrate.New(config)
	}
	defer func() {
		if migraterErr == nil {
			if err := migrater.Close(); err != nil {
				log.Println(err)
			}
		}
	}()

	ctx := context.Background()
	if migraterErr == nil {
		migrater.Log = log

		// handle Ctrl+c
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			for range signals {
				log.Println("Stopping after this running migration ...")
				migrater.GracefulStop <- true
				return
			}
		}()
	}

	var err error
	switch command {
	case "up":
		upSet, helpPtr := newFlagSetWithHelp("up")
		if err := upSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*helpPtr, upUsage, upSet)

		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = upCmd(ctx, migrater, os.Stdout)

	case "pending":
		pendingSet, helpPtr := newFlagSetWithHelp("pending")
		if err := pendingSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*helpPtr, pendingUsage, pendingSet)

		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = pendingCmd(ctx, migrater, os.Stdout)

	case "status":
		statusSet, helpPtr := newFlagSetWithHelp("status")
		if err := statusSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*helpPtr, statusUsage, statusSet)

		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = statusCmd(ctx, migrater, os.Stdout)

	case "validate":
		validateSet, helpPtr := newFlagSetWithHelp("validate")
		failFast := validateSet.Bool("fail-fast", false, "Stop at the first failing check")
		summary := validateSet.Bool("summary", false, "Print failure counts only")
		if err := validateSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*helpPtr, validateUsage, validateSet)

		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = validateCmd(ctx, migrater, migrate.ValidateOptions{FailFast: *failFast, SummaryOnly: *summary}, os.Stdout)

	case "delete":
		deleteSet, helpPtr := newFlagSetWithHelp("delete")
		dryRun := deleteSet.Bool("dry-run", false, "Print the plan without changing anything")
		force := deleteSet.Bool("f", false, "Bypass the confirmation prompt")
		if err := deleteSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*helpPtr, deleteUsage, deleteSet)

		if deleteSet.NArg() != 1 {
			log.fatal("error: please specify exactly one TARGET")
		}
		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		target := deleteSet.Arg(0)

		if !*dryRun && !*force {
			if err := confirm(fmt.Sprintf("Are you sure you want to delete %s from the migration chain?", target), os.Stdin); err != nil {
				log.fatalErr(err)
			}
		}
		err = deleteCmd(ctx, migrater, target, migrate.DeleteOptions{DryRun: *dryRun}, os.Stdout)

	case "drop":
		dropFlagSet, help := newFlagSetWithHelp("drop")
		forceDrop := dropFlagSet.Bool("f", false, "Force the drop command by bypassing the confirmation prompt")
		if err := dropFlagSet.Parse(args); err != nil {
			log.fatalErr(err)
		}
		handleSubCmdHelp(*help, dropUsage, dropFlagSet)

		if !*forceDrop {
			if err := confirm("Are you sure you want to drop the entire database?", os.Stdin); err != nil {
				log.fatalErr(err)
			}
			log.Println("Dropping the entire database")
		}
		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = dropCmd(ctx, migrater)

	case "version":
		if migraterErr != nil {
			log.fatalErr(migraterErr)
		}
		err = versionCmd(ctx, migrater, os.Stdout)

	default:
		printUsageAndExit()
	}

	if err != nil {
		if cerr := migrater.Close(); cerr != nil {
			log.Println(cerr)
		}
		log.fatalErr(err)
	}
	if log.verbose {
		log.Println("Finished after", time.Since(startTime))
	}
}
