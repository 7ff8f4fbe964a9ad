package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/core-tools/hsu-siat/pkg/config"
	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
	sprintflogging "github.com/core-tools/hsu-siat/pkg/logging/sprintf"
	"github.com/core-tools/hsu-siat/pkg/logging/zaplog"
	"github.com/core-tools/hsu-siat/pkg/serviceproxy"

	flags "github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Config      string `long:"config" short:"c" description:"Path to a YAML or TOML configuration file"`
	Environment string `long:"environment" short:"e" description:"SIAT environment (1|test, 2|production)"`
	Modality    string `long:"modality" short:"m" description:"Invoicing modality (electronica, computarizada)"`
	Token       string `long:"token" description:"SIAT API token"`
	Verbose     bool   `short:"v" long:"verbose" description:"Verbose logging"`
}

type endpointsCommand struct{}

type checkCommand struct {
	Retries       int           `long:"retries" description:"Regeneration attempts for failed services" default:"0"`
	RetryInterval time.Duration `long:"retry-interval" description:"Initial delay between regeneration attempts" default:"2s"`
}

var opts globalOptions

// errServicesFailed makes main exit non-zero without printing a second message
var errServicesFailed = errors.New("one or more SIAT services failed")

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag)
	parser.SubcommandsOptional = false

	if _, err := parser.AddCommand("endpoints", "Print resolved endpoints",
		"Print the WSDL endpoint of every service for the selected environment and modality", &endpointsCommand{}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register command: %v\n", err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("check", "Build every SOAP client",
		"Build a client for every service and report which ones are unavailable", &checkCommand{}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register command: %v\n", err)
		os.Exit(1)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			os.Exit(0)
		}
		if !errors.Is(err, errServicesFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (c *endpointsCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newTextLogger()

	proxyOptions, err := cfg.ProxyOptions(logger)
	if err != nil {
		return err
	}
	proxy := serviceproxy.New(proxyOptions)

	endpointMap, err := proxy.Endpoints()
	if err != nil {
		return err
	}
	logger.Debugf("Resolved %d endpoints, environment: %s, modality: %s",
		len(endpointMap), proxy.Environment(), proxy.Modality())

	fmt.Printf("environment: %s, modality: %s\n", proxy.Environment(), proxy.Modality())
	for _, name := range endpointMap.Names() {
		fmt.Printf("%-28s %s\n", name, endpointMap[name])
	}
	return nil
}

func (c *checkCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, syncLogger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer syncLogger()

	proxyOptions, err := cfg.ProxyOptions(logger)
	if err != nil {
		return err
	}
	proxy := serviceproxy.New(proxyOptions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := proxy.Setup(ctx); err != nil {
		return err
	}

	if c.Retries > 0 {
		if _, err := proxy.RegenerateWithRetry(ctx, serviceproxy.RetryOptions{
			RetryAttempts: c.Retries,
			RetryInterval: c.RetryInterval,
		}); err != nil {
			logger.Warnf("Regeneration stopped: %v", err)
		}
	}

	services := proxy.Services()
	for _, name := range services.Names() {
		entry := services[name]
		if entry.OK() {
			fmt.Printf("%-28s ok      %s\n", name, entry.URL)
		} else {
			fmt.Printf("%-28s FAILED  %s: %v\n", name, entry.URL, entry.Err)
		}
	}

	ready, failed := services.Summary()
	fmt.Printf("ready: %d, failed: %d\n", ready, failed)

	if failed > 0 {
		return errServicesFailed
	}
	return nil
}

// loadConfig reads the configuration file when given and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.Config != "" {
		loaded, err := config.LoadConfigFromFile(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Environment != "" {
		cfg.SIAT.Environment = opts.Environment
	}
	if opts.Modality != "" {
		cfg.SIAT.Modality = opts.Modality
	}
	if opts.Token != "" {
		cfg.SIAT.Token = opts.Token
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newTextLogger writes plain lines to stderr, debug only when verbose
func newTextLogger() logging.Logger {
	sprintfLogger := sprintflogging.NewStdSprintfLogger()
	logLevel := logging.LogFuncs{
		Debugf: func(format string, args ...interface{}) {},
		Infof:  sprintfLogger.Infof,
		Warnf:  sprintfLogger.Warnf,
		Errorf: sprintfLogger.Errorf,
	}
	if opts.Verbose {
		logLevel.Debugf = sprintfLogger.Debugf
	}
	return logging.NewLogger("[siatctl] ", logLevel)
}

func newLogger(level string) (logging.Logger, func() error, error) {
	zapLevel, err := zaplog.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return zaplog.New("[siatctl] ", zapLevel)
}
