// ventoagent connects a host to a Vento control plane.
//
// On first start it asks for the control-plane host and credentials, names
// the device, logs in and stores the session token in the config file. It
// then registers the device, connects to the control plane's MQTT broker,
// publishes host monitors and answers remote actions until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/nerrad567/ventoagent/internal/agent"
	"github.com/nerrad567/ventoagent/internal/controlplane"
	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/infrastructure/config"
	"github.com/nerrad567/ventoagent/internal/infrastructure/influxdb"
	"github.com/nerrad567/ventoagent/internal/infrastructure/logging"
	"github.com/nerrad567/ventoagent/internal/infrastructure/mqtt"
	"github.com/nerrad567/ventoagent/internal/subsystems/gpio"
	"github.com/nerrad567/ventoagent/internal/subsystems/system"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "ventoagent.yaml"
	configPathEnv     = "VENTOAGENT_CONFIG"

	defaultHost     = "http://localhost:8000"
	defaultUsername = "admin"
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	configPath          string
	host                string
	username            string
	password            string
	deviceName          string
	token               string
	interval            int
	skipRegisterActions bool
	once                bool
	showVersion         bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fatal(err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("ventoagent %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, newTerminalPrompter()); err != nil {
		fatal(err)
		os.Exit(1)
	}
}

func fatal(err error) {
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, err)
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := pflag.NewFlagSet("ventoagent", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file path (default $"+configPathEnv+" or "+defaultConfigPath+")")
	fs.StringVar(&opts.host, "host", "", "control-plane URL, e.g. http://localhost:8000")
	fs.StringVarP(&opts.username, "user", "u", "", "control-plane username")
	fs.StringVarP(&opts.password, "password", "p", "", "control-plane password (prompted when needed)")
	fs.StringVarP(&opts.deviceName, "device", "d", "", "device name (generated when empty)")
	fs.StringVar(&opts.token, "token", "", "session token, skips login")
	fs.IntVarP(&opts.interval, "interval", "i", 0, "default monitor interval in seconds")
	fs.BoolVar(&opts.skipRegisterActions, "skip-register-actions", false, "do not trigger action registration after creating the device")
	fs.BoolVar(&opts.once, "once", false, "publish boot monitors and exit")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// resolveConfigPath picks the flag, then the environment, then the default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(configPathEnv); env != "" {
		return env
	}
	return defaultConfigPath
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, opts cliOptions, prompt *prompter) error {
	log := logging.Default()
	log.Info("starting ventoagent", "version", version, "commit", commit, "build_date", date)

	configPath := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyOverrides(config.Overrides{
		Host:            opts.host,
		Username:        opts.username,
		DeviceName:      opts.deviceName,
		Token:           opts.token,
		MonitorInterval: opts.interval,
	})
	if opts.skipRegisterActions {
		cfg.Agent.SkipRegisterActions = true
	}

	log = logging.New(cfg.Logging, version)

	if err := completeIdentity(cfg, prompt); err != nil {
		return err
	}
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "device", cfg.Agent.DeviceName)

	cp, err := controlplane.New(cfg.Agent.Host)
	if err != nil {
		return err
	}

	if controlplane.TokenExpired(cfg.Agent.Token, time.Now()) {
		if err := login(ctx, cfg, cp, opts.password, prompt); err != nil {
			return err
		}
		if err := config.Save(configPath, cfg); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		log.Info("logged in", "username", cfg.Agent.Username)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	agentOpts := agent.Options{
		DeviceName:          cfg.Agent.DeviceName,
		Token:               cfg.Agent.Token,
		Registrar:           cp,
		Dial:                mqttDialer(cfg, cp.Hostname(), log),
		MonitorInterval:     cfg.GetMonitorInterval(),
		SkipRegisterActions: cfg.Agent.SkipRegisterActions,
		Once:                opts.once,
		Version:             version,
		Logger:              log,
	}
	if cfg.Status.Enabled {
		agentOpts.StatusListen = cfg.Status.Listen
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		agentOpts.Sink = influxClient
		agentOpts.InfluxHealth = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	providers, err := agent.DefaultProviders(system.Options{
		BaseDir: cfg.Agent.BaseDir,
		Out:     os.Stdout,
		Logger:  log,
	}, gpio.IsRaspberryPi)
	if err != nil {
		return err
	}
	agentOpts.Providers = providers

	a, err := agent.New(agentOpts)
	if err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil {
		return err
	}

	log.Info("ventoagent stopped")
	return nil
}

// completeIdentity prompts for a missing host or username and generates a
// device name.
func completeIdentity(cfg *config.Config, prompt *prompter) error {
	if cfg.Agent.Host == "" {
		host, err := prompt.ask("Vento host", defaultHost)
		if err != nil {
			return fmt.Errorf("reading host: %w", err)
		}
		cfg.Agent.Host = host
	}
	if cfg.Agent.Username == "" {
		user, err := prompt.ask("Username", defaultUsername)
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
		cfg.Agent.Username = user
	}
	if cfg.Agent.DeviceName == "" {
		cfg.Agent.DeviceName = config.GenerateDeviceName()
	}
	cfg.Normalize()
	return nil
}

func login(ctx context.Context, cfg *config.Config, cp *controlplane.Client, password string, prompt *prompter) error {
	if password == "" {
		var err error
		password, err = prompt.secret(fmt.Sprintf("Password for %s", cfg.Agent.Username))
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	token, err := cp.Login(ctx, cfg.Agent.Username, password)
	if err != nil {
		return err
	}
	cfg.Agent.Token = token
	return nil
}

// mqttDialer connects to the broker with the agent's username and session
// token. An empty broker host means the control-plane host.
func mqttDialer(cfg *config.Config, controlPlaneHost string, log *logging.Logger) agent.DialFunc {
	return func(context.Context) (agent.Transport, error) {
		mqttCfg := cfg.MQTT
		if mqttCfg.Broker.Host == "" {
			mqttCfg.Broker.Host = controlPlaneHost
		}
		mqttCfg.Auth = config.MQTTAuthConfig{
			Username: cfg.Agent.Username,
			Password: cfg.Agent.Token,
		}
		mqttCfg.Broker.ClientID = clientID(mqttCfg.Broker.ClientID, cfg.Agent.DeviceName)

		client, err := mqtt.Connect(mqttCfg, envelope.StatusTopic(cfg.Agent.DeviceName))
		if err != nil {
			return nil, err
		}
		client.SetLogger(log)
		client.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected", "broker", mqtt.BrokerURL(mqttCfg), "client_id", mqttCfg.Broker.ClientID)
		return client, nil
	}
}

// clientID returns "<prefix>-<8 hex>", the prefix defaulting to the device
// name, so restarts never collide with a lingering session.
func clientID(prefix, device string) string {
	if prefix == "" {
		prefix = device
	}
	return prefix + "-" + uuid.NewString()[:8]
}
