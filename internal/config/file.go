package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileLookup reads a YAML file and exposes it with the same keys as the
// environment. Nested sections are joined with underscores, so
//
//	db:
//	  connect_timeout: 5s
//
// answers ASKORA_DB_CONNECT_TIMEOUT.
func FileLookup(path string) (LookupFunc, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	values, err := parseFile(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}, nil
}

// ChainLookup returns the first hit across lookups, in order.
func ChainLookup(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if value, ok := lookup(key); ok {
				return value, true
			}
		}
		return "", false
	}
}

func parseFile(content []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, err
	}
	values := map[string]string{}
	if err := flatten("ASKORA", root, values); err != nil {
		return nil, err
	}
	return values, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := prefix + "_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
		switch typed := node[key].(type) {
		case map[string]any:
			if err := flatten(name, typed, out); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("key %s: lists are not supported", name)
		case nil:
			out[name] = ""
		default:
			out[name] = fmt.Sprint(typed)
		}
	}
	return nil
}
