package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vaultcore/native/vault"

	"github.com/BurntSushi/toml"
)

// Config is the top-level node configuration decoded from TOML.
type Config struct {
	ListenAddress      string `toml:"ListenAddress"`
	DataDir            string `toml:"DataDir"`
	Service            string `toml:"Service"`
	Environment        string `toml:"Environment"`
	VaultAddress       string `toml:"VaultAddress"`
	RateLimitPerSecond float64
	RateLimitBurst     int

	Roles Roles        `toml:"Roles"`
	Vault vault.Config `toml:"Vault"`
}

// Roles lists the hex-encoded addresses holding each operator capability.
type Roles struct {
	Fillers           []string `toml:"Fillers"`
	PoolUpdaters      []string `toml:"PoolUpdaters"`
	Distributors      []string `toml:"Distributors"`
	LiquidityManagers []string `toml:"LiquidityManagers"`
	Admins            []string `toml:"Admins"`
}

// Load loads the configuration from the given path, writing a default file if
// none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./vault-data"
	}
	if strings.TrimSpace(c.Service) == "" {
		c.Service = "vaultd"
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 20
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 40
	}
}

// Validate checks the node-level fields and the embedded vault section.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.VaultAddress) != "" {
		if _, err := ParseAddress(c.VaultAddress); err != nil {
			return fmt.Errorf("config: VaultAddress: %w", err)
		}
	}
	for field, list := range map[string][]string{
		"Roles.Fillers":           c.Roles.Fillers,
		"Roles.PoolUpdaters":      c.Roles.PoolUpdaters,
		"Roles.Distributors":      c.Roles.Distributors,
		"Roles.LiquidityManagers": c.Roles.LiquidityManagers,
		"Roles.Admins":            c.Roles.Admins,
	} {
		for _, entry := range list {
			if _, err := ParseAddress(entry); err != nil {
				return fmt.Errorf("config: %s: %w", field, err)
			}
		}
	}
	if _, err := c.Vault.Normalise().Parameters(); err != nil {
		return fmt.Errorf("config: Vault: %w", err)
	}
	return nil
}

// VaultAccount returns the parsed vault module account address. A zero address
// is returned when the field is unset so callers can substitute a default.
func (c *Config) VaultAccount() ([20]byte, error) {
	if strings.TrimSpace(c.VaultAddress) == "" {
		return [20]byte{}, nil
	}
	return ParseAddress(c.VaultAddress)
}

// ParseAddress decodes a hex-encoded 20-byte account address. A leading 0x
// prefix is accepted.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", value, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// ParseAddresses decodes a slice of hex-encoded account addresses.
func ParseAddresses(values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for _, value := range values {
		addr, err := ParseAddress(value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
