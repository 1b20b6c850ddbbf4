// Package config implements ambient configuration loading: YAML file +
// environment-variable override + embedded default, with a dotted-path
// accessor. Grounded on the teacher's upnp/config.go, renamed for this
// module (UPNPCORE_CONFIG / .upnpcore.yml).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"os/user"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

const envConfigFile = "UPNPCORE_CONFIG"
const envPrefix = "UPNPCORE_CONFIG__"

// Config is a loaded, dotted-path-addressable configuration tree, backed
// by a YAML file that changes are persisted to.
type Config struct {
	path   string
	mutex  sync.Mutex
	config map[string]interface{}
}

var (
	globalOnce sync.Once
	global     *Config
)

// Load loads a configuration file from the given path, or — if empty — a
// default location, in this precedence order:
//
//   - the provided path
//   - the file named by the environment variable UPNPCORE_CONFIG
//   - ./.upnpcore.yml
//   - $HOME/.upnpcore.yml
//   - the embedded default
//
// Environment overrides of the form UPNPCORE_CONFIG__A__B=value are applied
// on top regardless of which file was loaded. If no file could be read,
// Load falls back to the embedded default without an error — logging an
// info line — matching the teacher's "never fail to produce a config"
// stance, and persists it to the first candidate path that is writable.
func Load(filename string) *Config {
	var data []byte
	var err error
	cfg := &Config{}

	resolvedPath := filename
	if resolvedPath != "" {
		data, err = os.ReadFile(resolvedPath)
		if err != nil {
			log.Warnf("❌ cannot read config file %s", resolvedPath)
			resolvedPath = ""
		}
	}

	if resolvedPath == "" {
		resolvedPath = os.Getenv(envConfigFile)
		if resolvedPath != "" {
			data, err = os.ReadFile(resolvedPath)
			if err != nil {
				log.Warnf("❌ cannot read config file %s from env var %s", resolvedPath, envConfigFile)
				resolvedPath = ""
			}
		}
	}

	if resolvedPath == "" {
		resolvedPath = ".upnpcore.yml"
		data, err = os.ReadFile(resolvedPath)
		if err != nil {
			resolvedPath = ""
		}
	}

	if resolvedPath == "" {
		resolvedPath = homeYmlPath()
		if resolvedPath != "" {
			data, err = os.ReadFile(resolvedPath)
			if err != nil {
				resolvedPath = ""
			}
		}
	}

	if resolvedPath == "" {
		log.Infof("✅ using embedded default config")
		data = defaultConfig
	}

	if err := yaml.Unmarshal(data, &cfg.config); err != nil {
		log.Panicf("invalid YAML config: %v", err)
	}
	cfg.config = lowerKeysMap(cfg.config)
	applyEnvOverrides(cfg)

	if resolvedPath == "" {
		switch {
		case filename != "" && isWritable(filename):
			resolvedPath = filename
		case os.Getenv(envConfigFile) != "" && isWritable(os.Getenv(envConfigFile)):
			resolvedPath = os.Getenv(envConfigFile)
		case isWritable(".upnpcore.yml"):
			resolvedPath = ".upnpcore.yml"
		case isWritable(homeYmlPath()):
			resolvedPath = homeYmlPath()
		}
	}

	cfg.path = resolvedPath
	if cfg.path != "" {
		if err := cfg.Save(); err != nil {
			log.Warnf("❌ cannot persist config to %s: %v", cfg.path, err)
		}
	}
	return cfg
}

// Global returns the process-wide default Config, loading it on first use.
func Global() *Config {
	globalOnce.Do(func() {
		global = Load("")
	})
	return global
}

func (cfg *Config) Save() error {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	if cfg.path == "" {
		return nil
	}
	cfg.config = lowerKeysMap(cfg.config)
	data, err := yaml.Marshal(cfg.config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfg.path, data, 0644)
}

// SetValue stores value at the dotted path and persists the change.
func (cfg *Config) SetValue(path []string, value interface{}) {
	cfg.setValue(path, value)
	cfg.Save()
}

// GetValue retrieves the value at the dotted path.
func (cfg *Config) GetValue(path []string) (interface{}, error) {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)
		next, ok := current[key]
		if !ok {
			return nil, fmt.Errorf("path %s does not exist", strings.Join(path[:i+1], "."))
		}
		if i < len(path)-1 {
			current, ok = next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("path %s is not a map", strings.Join(path[:i+1], "."))
			}
			continue
		}
		return next, nil
	}
	return nil, fmt.Errorf("path %s does not exist", strings.Join(path, "."))
}

func (cfg *Config) setValue(path []string, value interface{}) {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)
		if i == len(path)-1 {
			current[key] = value
			return
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[key] = next
		}
		current = next
	}
}

func homeYmlPath() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	return path.Join(usr.HomeDir, ".upnpcore.yml")
}

func applyEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyPath := strings.Split(strings.TrimPrefix(parts[0], envPrefix), "__")
		overrideConfig(cfg, keyPath, parts[1])
	}
}

func convertYAMLScalar(s string) interface{} {
	var out interface{}
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	return out
}

func overrideConfig(cfg *Config, keyPath []string, value string) {
	cfg.setValue(keyPath, convertYAMLScalar(value))
}

func lowerKeysMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		lk := strings.ToLower(k)
		if vv, ok := v.(map[string]interface{}); ok {
			out[lk] = lowerKeysMap(vv)
		} else {
			out[lk] = v
		}
	}
	return out
}

// isWritable reports whether path names a file that can be created or
// opened for writing.
func isWritable(path string) bool {
	if path == "" {
		return false
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// GetBaseURL returns the configured HTTP base URL override, or "" if the
// host should derive one from a guessed local IP.
func (cfg *Config) GetBaseURL() string {
	v, _ := cfg.GetValue([]string{"host", "base_url"})
	s, _ := v.(string)
	return s
}

// GetHTTPPort returns the configured HTTP listen port, or 0 (ephemeral)
// if unset or invalid.
func (cfg *Config) GetHTTPPort() int {
	v, _ := cfg.GetValue([]string{"host", "http_port"})
	switch n := v.(type) {
	case int:
		return n
	default:
		return 0
	}
}

// GetLeaseTime returns the configured default device lease time.
func (cfg *Config) GetLeaseTime() time.Duration {
	v, _ := cfg.GetValue([]string{"host", "lease_time"})
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Second
	default:
		return 1800 * time.Second
	}
}

func (cfg *Config) GetUserAgent() string {
	v, _ := cfg.GetValue([]string{"host", "user_agent"})
	s, _ := v.(string)
	if s == "" {
		return "UPnP/1.1 upnpcore/1.0"
	}
	return s
}

func (cfg *Config) GetServerHeader() string {
	v, _ := cfg.GetValue([]string{"host", "server_header"})
	s, _ := v.(string)
	if s == "" {
		return "upnpcore/1.0 UPnP/1.1"
	}
	return s
}

// GetSpecStrict reports whether strict DLNA pacing (grouped SSDP
// announcements, doubled M-SEARCH responses) is enabled. No SOAP
// namespace check reads this flag.
func (cfg *Config) GetSpecStrict() bool {
	v, _ := cfg.GetValue([]string{"host", "spec_strict"})
	b, _ := v.(bool)
	return b
}

// GetDeviceUDN returns the persisted UDN for a (deviceType, name) pair,
// generating and persisting a new one on first use so UDNs survive
// restarts (matching the teacher's GetDeviceUDN).
func (cfg *Config) GetDeviceUDN(deviceType, name string) string {
	v, err := cfg.GetValue([]string{"devices", deviceType, name, "udn"})
	if err != nil {
		udn := uuid.New().String()
		cfg.SetValue([]string{"devices", deviceType, name, "udn"}, udn)
		return udn
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
