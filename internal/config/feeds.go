package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/feeds"
)

// Default upstream endpoints, as defined by the fetchers.
var defaultFeeds = Feeds{
	Quake:   Feed{URL: feeds.DefaultQuakeURL, Timeout: feeds.DefaultQuakeTimeout},
	Alert:   Feed{URL: feeds.DefaultAlertURL, Timeout: feeds.DefaultAlertTimeout},
	Event:   Feed{URL: feeds.DefaultEventURL, Timeout: feeds.DefaultEventTimeout},
	Hotspot: Feed{URL: feeds.DefaultHotspotURL, Timeout: feeds.DefaultHotspotTimeout},
}

// feedsFile is the shape of the optional FEEDS_CONFIG file:
//
//	feeds:
//	  quake:
//	    url: https://example.org/quakes.geojson
//	    timeout: 5s
type feedsFile struct {
	Feeds Feeds `yaml:"feeds"`
}

// loadFeeds starts from the defaults, applies the FEEDS_CONFIG file and then
// the per-source environment variables.
func loadFeeds() (Feeds, error) {
	out := defaultFeeds

	if path := os.Getenv("FEEDS_CONFIG"); path != "" {
		overlay, err := readFeedsFile(path)
		if err != nil {
			return Feeds{}, err
		}
		out.Quake = overlay.Quake.over(out.Quake)
		out.Alert = overlay.Alert.over(out.Alert)
		out.Event = overlay.Event.over(out.Event)
		out.Hotspot = overlay.Hotspot.over(out.Hotspot)
	}

	env := []struct {
		prefix string
		feed   *Feed
	}{
		{"QUAKE", &out.Quake},
		{"ALERT", &out.Alert},
		{"EVENT", &out.Event},
		{"HOTSPOT", &out.Hotspot},
	}
	for _, e := range env {
		if v := os.Getenv(e.prefix + "_FEED_URL"); v != "" {
			e.feed.URL = v
		}
		key := e.prefix + "_FEED_TIMEOUT"
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return Feeds{}, fmt.Errorf("invalid %s", key)
			}
			e.feed.Timeout = d
		}
	}
	return out, nil
}

func readFeedsFile(path string) (Feeds, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Feeds{}, fmt.Errorf("read FEEDS_CONFIG: %w", err)
	}
	var f feedsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Feeds{}, fmt.Errorf("parse FEEDS_CONFIG: %w", err)
	}
	for name, feed := range map[string]Feed{
		"quake": f.Feeds.Quake, "alert": f.Feeds.Alert, "event": f.Feeds.Event, "hotspot": f.Feeds.Hotspot,
	} {
		if feed.Timeout < 0 {
			return Feeds{}, fmt.Errorf("invalid FEEDS_CONFIG: %s timeout must be positive", name)
		}
	}
	return f.Feeds, nil
}

// over returns base with the fields set in f replacing it.
func (f Feed) over(base Feed) Feed {
	if f.URL != "" {
		base.URL = f.URL
	}
	if f.Timeout > 0 {
		base.Timeout = f.Timeout
	}
	return base
}
