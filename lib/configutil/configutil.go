package configutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Settings is a tree of nested string-keyed maps addressed by dotted paths
// like `browser.headless` or `scraping.max_retries`.
//
// A Settings value is built once at startup and passed to the constructors
// that need it, it is not safe to Update while other goroutines read it.
type Settings struct {
	tree map[string]any
}

// New wraps an existing tree, nil is treated as an empty tree.
func New(tree map[string]any) *Settings {
	if tree == nil {
		tree = map[string]any{}
	}
	return &Settings{tree: tree}
}

// Defaults returns a fresh copy of the built-in settings.
func Defaults() *Settings {
	return New(defaultTree())
}

func defaultTree() map[string]any {
	return map[string]any{
		"browser": map[string]any{
			"headless":          false,
			"user_agent":        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			"page_load_timeout": 20.0,
			"implicitly_wait":   7.0,
			"ready_wait":        5.0,
			"ready_selector":    "h1, div[data-marker='item-view/item']",
			"dump_dir":          ".dev/pages",
			"proxy": map[string]any{
				"enabled":    false,
				"proxies":    []any{},
				"ssl_verify": false,
			},
		},
		"scraping": map[string]any{
			"base_url":               "https://www.hltv.org",
			"results_path":           "/results",
			"max_matches":            1000.0,
			"matches_per_page":       100.0,
			"max_retries":            2.0,
			"delay":                  1.0,
			"delay_between_attempts": []any{0.5, 1.5},
			"timezone":               "UTC",
			"schedule":               "0 */6 * * *",
		},
		"database": map[string]any{
			"dsn": "file:hltv.db",
		},
		"telemetry": map[string]any{
			"otlp": map[string]any{
				"traces":  map[string]any{},
				"metrics": map[string]any{},
			},
		},
	}
}

// Get looks up a dotted path, the boolean is false when any segment is missing.
func (s *Settings) Get(path string) (any, bool) {
	var current any = s.tree
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes a value at a dotted path, creating intermediate maps on the way.
func (s *Settings) Set(path string, value any) {
	segments := strings.Split(path, ".")
	node := s.tree
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

// Update deep-merges overrides into the tree. Nested maps are merged key by key,
// everything else (including lists) replaces the existing value.
func (s *Settings) Update(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	return mergo.Merge(&s.tree, overrides, mergo.WithOverride)
}

func (s *Settings) String(path, fallback string) string {
	value, ok := s.Get(path)
	if !ok {
		return fallback
	}
	str, ok := value.(string)
	if !ok {
		return fallback
	}
	return str
}

func (s *Settings) Float(path string, fallback float64) float64 {
	value, ok := s.Get(path)
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func (s *Settings) Int(path string, fallback int) int {
	value, ok := s.Get(path)
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return fallback
		}
		return int(n)
	}
	return fallback
}

func (s *Settings) Bool(path string, fallback bool) bool {
	value, ok := s.Get(path)
	if !ok {
		return fallback
	}
	b, ok := value.(bool)
	if !ok {
		return fallback
	}
	return b
}

// Seconds reads a number of (possibly fractional) seconds as a duration.
func (s *Settings) Seconds(path string, fallback time.Duration) time.Duration {
	seconds := s.Float(path, -1)
	if seconds < 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

// Strings reads a list of strings, non-string items are skipped.
func (s *Settings) Strings(path string) []string {
	value, ok := s.Get(path)
	if !ok {
		return nil
	}
	var out []string
	switch list := value.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			str, ok := item.(string)
			if ok {
				out = append(out, str)
			}
		}
	}
	return out
}

// FloatRange reads a two item list as (min, max).
func (s *Settings) FloatRange(path string, lo, hi float64) (float64, float64) {
	value, ok := s.Get(path)
	if !ok {
		return lo, hi
	}
	list, ok := value.([]any)
	if !ok || len(list) != 2 {
		return lo, hi
	}
	first := New(map[string]any{"v": list[0]}).Float("v", lo)
	second := New(map[string]any{"v": list[1]}).Float("v", hi)
	if first > second {
		return second, first
	}
	return first, second
}

// Decode converts the subtree at path into a typed value through its json tags.
func (s *Settings) Decode(path string, out any) error {
	value, ok := s.Get(path)
	if !ok {
		return fmt.Errorf("settings: %s not found", path)
	}
	buff, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(buff, out)
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

func readTree(path string) (map[string]any, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, nil
	}
	var tree map[string]any
	err = json5.Unmarshal(contents, &tree)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

// legacySections maps older top-level section names onto their current ones.
// A file carrying both has the current section win key by key.
var legacySections = map[string]string{
	"selenium": "browser",
}

func renameLegacySections(tree map[string]any) map[string]any {
	for legacy, current := range legacySections {
		section, ok := tree[legacy].(map[string]any)
		if !ok {
			continue
		}
		delete(tree, legacy)
		existing, ok := tree[current].(map[string]any)
		if ok {
			// mergo without override keeps what the current section already set
			_ = mergo.Merge(&existing, section)
			section = existing
		}
		tree[current] = section
	}
	return tree
}

// Load builds the settings for a process. `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// The following sources are merged, where higher number is more prioritized.
// 1. built-in defaults
// 2. <name>.<ext>
// 3. <name>.local.<ext>
// A `selenium` section in either file is read as `browser`.
// 4. the environment (and a .env file, if present)
//
// Missing files are not an error.
func Load(name string) (*Settings, error) {
	settings := Defaults()

	if name != "" {
		dirname := filepath.Dir(name)
		prefixname, ext := splitExt(filepath.Base(name))
		localFilepath := filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))

		for _, path := range []string{name, localFilepath} {
			tree, err := readTree(path)
			if err != nil {
				return nil, err
			}
			if tree == nil {
				continue
			}
			err = settings.Update(renameLegacySections(tree))
			if err != nil {
				return nil, err
			}
			slog.Info("merging settings", "file", path)
		}
	}

	err := ApplyEnv(settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}
