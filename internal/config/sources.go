package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"event-scout/internal/domain/event"
)

// defaultSources is the built-in source list, used when SCRAPE_SOURCES_FILE
// is not set. Names must be unique; the orchestrator keys stats by name.
var defaultSources = []event.SourceDescriptor{
	{
		Name:     "ethglobal",
		Kind:     event.KindWeb,
		Endpoint: "https://ethglobal.com/events",
	},
	{
		Name:     "devfolio",
		Kind:     event.KindWeb,
		Endpoint: "https://devfolio.co/hackathons",
		RenderJS: true,
	},
	{
		Name:     "luma-crypto",
		Kind:     event.KindWeb,
		Endpoint: "https://lu.ma/crypto",
	},
	{
		Name:     "x-event-search",
		Kind:     event.KindSocial,
		Platform: "x",
		Queries: []string{
			"web3 hackathon",
			"crypto conference",
			"blockchain summit",
		},
	},
}

// LoadSources returns the configured source descriptors, from the JSON file
// named by cfg.SourcesFile or the built-in defaults.
func LoadSources(cfg ScrapeConfig) ([]event.SourceDescriptor, error) {
	path := strings.TrimSpace(cfg.SourcesFile)
	if path == "" {
		out := make([]event.SourceDescriptor, len(defaultSources))
		copy(out, defaultSources)
		return out, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var sources []event.SourceDescriptor
	if err := json.Unmarshal(b, &sources); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := map[string]struct{}{}
	for _, s := range sources {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("source with empty name")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate source name: %s", name)
		}
		seen[name] = struct{}{}
		switch s.Kind {
		case event.KindWeb:
			if strings.TrimSpace(s.Endpoint) == "" {
				return nil, fmt.Errorf("web source %s missing endpoint", name)
			}
		case event.KindSocial:
			if len(s.Queries) == 0 {
				return nil, fmt.Errorf("social source %s has no queries", name)
			}
		default:
			return nil, fmt.Errorf("source %s has unknown kind %q", name, s.Kind)
		}
	}
	return sources, nil
}
