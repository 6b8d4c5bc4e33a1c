// MCP server configuration derived from USE MCP commitments.
//
// The output uses the common mcpServers file format:
//
//	{
//	  "mcpServers": {
//	    "server-filesystem": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
//	    },
//	    "mcp-example-com": {
//	      "url": "https://mcp.example.com/sse"
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/richinex/agentbook/model"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents a single MCP server configuration. Stdio servers
// set Command; remote servers set URL.
type ServerConfig struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// IsRemote reports whether the server is reached over HTTP.
func (s ServerConfig) IsRemote() bool {
	return s.URL != ""
}

// String returns the server the way a USE MCP line names it.
func (s ServerConfig) String() string {
	if s.IsRemote() {
		return s.URL
	}
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}

// ParseServer turns a USE MCP reference into a server config. http and
// https references are remote servers; anything else is a command line.
func ParseServer(ref string) (ServerConfig, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ServerConfig{}, fmt.Errorf("empty MCP server reference")
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if u.Host == "" {
			return ServerConfig{}, fmt.Errorf("MCP server url %q has no host", ref)
		}
		return ServerConfig{URL: ref}, nil
	}
	fields := strings.Fields(ref)
	return ServerConfig{Command: fields[0], Args: fields[1:]}, nil
}

// FromRequirements builds the server configuration for a compiled agent.
// References that cannot be parsed are reported and skipped.
func FromRequirements(req model.Requirements) (Config, []error) {
	config := Config{MCPServers: make(map[string]ServerConfig, len(req.MCPServers))}
	var errs []error
	for _, ref := range req.MCPServers {
		server, err := ParseServer(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		config.add(serverName(server), server)
	}
	return config, errs
}

// add stores server under name, suffixing the name when it is taken.
func (c *Config) add(name string, server ServerConfig) {
	candidate := name
	for i := 2; ; i++ {
		if _, taken := c.MCPServers[candidate]; !taken {
			break
		}
		candidate = name + "-" + strconv.Itoa(i)
	}
	c.MCPServers[candidate] = server
}

// serverName derives a readable key: the host for remote servers, the last
// package or path element for commands.
func serverName(s ServerConfig) string {
	if s.IsRemote() {
		u, _ := url.Parse(s.URL)
		return strings.ReplaceAll(u.Hostname(), ".", "-")
	}
	name := path.Base(s.Command)
	for i := len(s.Args) - 1; i >= 0; i-- {
		if arg := s.Args[i]; !strings.HasPrefix(arg, "-") && strings.Contains(arg, "server") {
			name = path.Base(arg)
			break
		}
	}
	return name
}

// Merge returns c with the servers of other added. Names already present
// in c win.
func (c Config) Merge(other Config) Config {
	merged := Config{MCPServers: make(map[string]ServerConfig, len(c.MCPServers)+len(other.MCPServers))}
	for name, server := range c.MCPServers {
		merged.MCPServers[name] = server
	}
	for name, server := range other.MCPServers {
		if _, exists := merged.MCPServers[name]; !exists {
			merged.MCPServers[name] = server
		}
	}
	return merged
}

// LoadConfig loads MCP configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = map[string]ServerConfig{}
	}

	return &config, nil
}

// Names returns the configured server names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerCommands returns the command line of every stdio server, ordered
// by server name.
func (c Config) ServerCommands() []string {
	var commands []string
	for _, name := range c.Names() {
		if server := c.MCPServers[name]; !server.IsRemote() {
			commands = append(commands, server.String())
		}
	}
	return commands
}
