package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GetByPath returns the value at a dot path such as "general.maxSteps" or
// "providers.dashscope.apiKey". Fields left empty (and so omitted from the
// JSON form) resolve to their zero value.
func GetByPath(cfg *Config, path string) (any, error) {
	typ, err := fieldType(path)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return reflect.Zero(typ).Interface(), nil
	}
	return res.Value(), nil
}

// SetByPath parses value according to the type of the field at path and
// stores it. List fields take comma-separated items; an empty value clears
// the list. cfg is left untouched on error.
func SetByPath(cfg *Config, path string, value string) error {
	typ, err := fieldType(path)
	if err != nil {
		return err
	}
	v, err := parseAs(typ, value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if data, err = sjson.SetBytes(data, path, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	var updated Config
	if err := json.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*cfg = updated
	return nil
}

// fieldType walks the Config type along path using json tag names. Map
// levels (providers) accept any key.
func fieldType(path string) (reflect.Type, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	t := reflect.TypeOf(Config{})
	for _, key := range strings.Split(path, ".") {
		switch t.Kind() {
		case reflect.Struct:
			f, ok := fieldByJSONName(t, key)
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			t = f.Type
		case reflect.Map:
			if key == "" {
				return nil, fmt.Errorf("empty key in %s", path)
			}
			t = t.Elem()
		default:
			return nil, fmt.Errorf("cannot traverse into %s at %s", t.Kind(), key)
		}
	}
	return t, nil
}

func fieldByJSONName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func parseAs(t reflect.Type, s string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Bool:
		return strconv.ParseBool(s)
	case reflect.Int, reflect.Int32, reflect.Int64:
		return strconv.Atoi(s)
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(s, 64)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			break
		}
		items := []string{}
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("cannot set a %s value from the command line", t.Kind())
}

// Sanitize returns a copy of the config with resolved API keys masked.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.General.FailoverChain = slices.Clone(cfg.General.FailoverChain)
	out.Tools.DeniedTools = slices.Clone(cfg.Tools.DeniedTools)
	out.Providers = make(map[string]ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		if p.APIKey != "" && !IsUnresolved(p.APIKey) {
			p.APIKey = maskString(p.APIKey)
		}
		out.Providers[name] = p
	}
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every leaf present in the JSON form of cfg, keyed by dot
// path.
func ListPaths(cfg *Config) map[string]any {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	out := make(map[string]any)
	collectLeaves("", gjson.ParseBytes(data), out)
	return out
}

func collectLeaves(prefix string, r gjson.Result, out map[string]any) {
	if !r.IsObject() {
		out[prefix] = r.Value()
		return
	}
	r.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		collectLeaves(path, value, out)
		return true
	})
}
