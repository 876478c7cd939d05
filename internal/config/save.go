package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultConfigTemplate is written on first run so users have a commented
// starting point instead of an empty file.
const defaultConfigTemplate = `# flowdeck configuration
server:
  # Backend base URL; the event socket is derived from it (http -> ws).
  url: %q
  # Fixed reconnect delay in milliseconds. Never backs off, never gives up.
  reconnect_delay_ms: %d

dedupe:
  capacity: %d
  evict_batch: %d

archive:
  # Persist finished node executions to a local sqlite database.
  enabled: false

tracing:
  enabled: false
  exporter: stdout

ui:
  show_debug_pane: true
  markdown_style: dark
`

// WriteDefaultConfig writes a commented default config file at path,
// creating parent directories as needed. Existing files are left alone.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	d := Defaults()
	content := fmt.Sprintf(defaultConfigTemplate,
		d.Server.URL, d.Server.ReconnectDelayMS, d.Dedupe.Capacity, d.Dedupe.EvictBatch)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// SaveServerURL updates only the server.url key in the config file,
// preserving comments and other sections via yaml.Node surgery.
func SaveServerURL(configPath, url string) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	urlNode := &yaml.Node{Kind: yaml.ScalarNode, Value: url}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind: yaml.MappingNode,
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Value: "server"},
					{Kind: yaml.MappingNode, Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "url"},
						urlNode,
					}},
				},
			}},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		server := findOrAppendMapping(root, "server")
		setMappingKey(server, "url", urlNode)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// findOrAppendMapping returns the mapping node for key under root,
// appending an empty one if absent.
func findOrAppendMapping(root *yaml.Node, key string) *yaml.Node {
	if root.Kind != yaml.MappingNode {
		return root
	}
	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key}, node)
	return node
}

// setMappingKey replaces or appends key: value inside a mapping node.
func setMappingKey(mapping *yaml.Node, key string, value *yaml.Node) {
	if mapping.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
}
