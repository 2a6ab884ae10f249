/*
Package config handles the resolution of Evrmore client connection
parameters. A Config can come from explicit options, process environment
variables, a node's evrmore.conf in its data directory or a YAML file, in
that order of precedence. The resolved Config is immutable as far as the
clients are concerned, they never write it back.
*/
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Network is the Evrmore network the client talks to.
type Network uint8

const (
	// NetMain is the main Evrmore network.
	NetMain Network = iota
	// NetTest is the Evrmore test network.
	NetTest
)

const (
	// MainRPCPort is the default RPC port of a mainnet node.
	MainRPCPort = 8819
	// TestRPCPort is the default RPC port of a testnet node.
	TestRPCPort = 18819
	// DefaultZMQPort is the default port of a node's ZMQ publisher.
	DefaultZMQPort = 28332
	// DefaultTimeout is the default RPC request timeout.
	DefaultTimeout = 30 * time.Second
)

// Environment variables consulted by Resolve.
const (
	EnvRPCHost     = "EVR_RPC_HOST"
	EnvRPCPort     = "EVR_RPC_PORT"
	EnvRPCUser     = "EVR_RPC_USER"
	EnvRPCPassword = "EVR_RPC_PASSWORD"
	EnvRPCScheme   = "EVR_RPC_SCHEME"
	EnvTestnet     = "EVR_TESTNET"
	EnvDataDir     = "EVR_DATADIR"
)

// String implements the Stringer interface.
func (n Network) String() string {
	switch n {
	case NetTest:
		return "testnet"
	default:
		return "mainnet"
	}
}

// RPCPort returns the default RPC port for the network.
func (n Network) RPCPort() uint16 {
	if n == NetTest {
		return TestRPCPort
	}
	return MainRPCPort
}

// Config is a fully resolved set of client connection parameters. YAML
// decoding goes through UnmarshalYAML, which accepts Timeout as a duration
// string.
type Config struct {
	Scheme   string
	Host     string
	Port     uint16
	User     string
	Password string
	Timeout  time.Duration
	Network  Network
	// ZMQEndpoint is the address of the node's notification publisher.
	ZMQEndpoint string
}

// Endpoint returns the RPC URL of the node.
func (c Config) Endpoint() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// configAux mirrors Config for YAML decoding, Timeout rides as a duration
// string ("10s").
type configAux struct {
	Scheme      string `yaml:"Scheme"`
	Host        string `yaml:"Host"`
	Port        uint16 `yaml:"Port"`
	User        string `yaml:"User"`
	Password    string `yaml:"Password"`
	Timeout     string `yaml:"Timeout"`
	ZMQEndpoint string `yaml:"ZMQEndpoint"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	var aux configAux
	if err := unmarshal(&aux); err != nil {
		return err
	}
	if aux.Scheme != "" {
		c.Scheme = aux.Scheme
	}
	if aux.Host != "" {
		c.Host = aux.Host
	}
	if aux.Port != 0 {
		c.Port = aux.Port
	}
	c.User = aux.User
	c.Password = aux.Password
	if aux.ZMQEndpoint != "" {
		c.ZMQEndpoint = aux.ZMQEndpoint
	}
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("invalid Timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Option changes one resolved parameter. Options have the highest
// precedence.
type Option func(*Config)

// WithHost sets the RPC host.
func WithHost(host string) Option {
	return func(c *Config) { c.Host = host }
}

// WithPort sets the RPC port.
func WithPort(port uint16) Option {
	return func(c *Config) { c.Port = port }
}

// WithCredentials sets the RPC user and password.
func WithCredentials(user, password string) Option {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithScheme sets the URL scheme (http or https).
func WithScheme(scheme string) Option {
	return func(c *Config) { c.Scheme = scheme }
}

// WithTimeout sets the RPC request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithTestnet selects the test network along with its default RPC port.
func WithTestnet() Option {
	return func(c *Config) {
		c.Network = NetTest
		c.Port = TestRPCPort
	}
}

// WithZMQEndpoint sets the notification publisher address.
func WithZMQEndpoint(ep string) Option {
	return func(c *Config) { c.ZMQEndpoint = ep }
}

// Resolve produces a Config from, in rising order of precedence, defaults,
// the node's evrmore.conf (found in datadir, or EVR_DATADIR, or the default
// data directory), process environment variables and explicit options.
// A missing evrmore.conf is not an error, a malformed one is.
func Resolve(datadir string, opts ...Option) (Config, error) {
	c := defaultConfig()

	if datadir == "" {
		datadir = os.Getenv(EnvDataDir)
	}
	if datadir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			datadir = filepath.Join(home, ".evrmore")
		}
	}
	if datadir != "" {
		if err := applyNodeConf(&c, filepath.Join(datadir, "evrmore.conf")); err != nil {
			return c, err
		}
	}
	applyEnv(&c)
	for _, o := range opts {
		o(&c)
	}
	return c, nil
}

// LoadYAML reads a client configuration from a YAML file. Unset fields keep
// their defaults.
func LoadYAML(path string) (Config, error) {
	c := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("unable to parse config: %w", err)
	}
	return c, nil
}

func defaultConfig() Config {
	return Config{
		Scheme:      "http",
		Host:        "127.0.0.1",
		Port:        MainRPCPort,
		Timeout:     DefaultTimeout,
		Network:     NetMain,
		ZMQEndpoint: fmt.Sprintf("tcp://127.0.0.1:%d", DefaultZMQPort),
	}
}

// applyNodeConf reads Bitcoin-style key=value pairs from an evrmore.conf.
func applyNodeConf(c *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read %s: %w", path, err)
	}
	defer f.Close()

	var explicitPort bool
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "rpcuser":
			c.User = value
		case "rpcpassword":
			c.Password = value
		case "rpcconnect":
			c.Host = value
		case "rpcport":
			p, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid rpcport in %s: %w", path, err)
			}
			c.Port = uint16(p)
			explicitPort = true
		case "testnet":
			if value == "1" {
				c.Network = NetTest
				if !explicitPort {
					c.Port = TestRPCPort
				}
			}
		case "zmqpubhashblock", "zmqpubhashtx", "zmqpubrawblock", "zmqpubrawtx":
			// All four publishers normally share one endpoint, any of
			// them resolves it.
			c.ZMQEndpoint = value
		}
	}
	return s.Err()
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvRPCHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvRPCPort); v != "" {
		if p, err := strconv.ParseUint(v, 10, 16); err == nil {
			c.Port = uint16(p)
		}
	}
	if v := os.Getenv(EnvRPCUser); v != "" {
		c.User = v
	}
	if v := os.Getenv(EnvRPCPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvRPCScheme); v != "" {
		c.Scheme = v
	}
	if v := os.Getenv(EnvTestnet); v == "1" {
		c.Network = NetTest
		c.Port = TestRPCPort
	}
}
