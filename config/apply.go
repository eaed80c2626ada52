package config

import (
	"fmt"

	"github.com/loggate/loggate/category"
	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/template"
)

// Apply projects a snapshot onto a registry and template engine: the
// default level and template, then every per-category override. Sinks
// are not touched; swapping those is up to the caller since it may need
// to drain network connections first.
func Apply(cfg *Config, reg *category.Registry, eng *template.Engine) error {
	level, err := core.ParseLevel(cfg.DefaultLevel)
	if err != nil {
		return fmt.Errorf("default_level: %w", err)
	}
	reg.SetDefaultLevel(level)

	if eng != nil && cfg.DefaultTemplate != "" {
		eng.SetDefaultTemplate(cfg.DefaultTemplate)
	}

	for name, cat := range cfg.Categories {
		if cat.Level != "" {
			lv, err := core.ParseLevel(cat.Level)
			if err != nil {
				return fmt.Errorf("categories[%s].level: %w", name, err)
			}
			if err := reg.Register(name, lv); err != nil {
				return fmt.Errorf("categories[%s]: %w", name, err)
			}
		}
		if cat.Template != "" {
			if err := reg.SetTemplate(name, cat.Template); err != nil {
				return fmt.Errorf("categories[%s].template: %w", name, err)
			}
		}
	}
	return nil
}
