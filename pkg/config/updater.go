package config

import (
	"sync"

	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"

	"github.com/mitchellh/mapstructure"
)

// setter applies one remotely supplied value to the config. Values arrive
// loosely typed from the wire and are coerced per field.
type setter func(*Config, interface{}) error

// updatable is the fixed whitelist of remotely mutable fields. Every other
// field is rejected per request, never applied. The set is declared here
// explicitly rather than derived from the Config type.
var updatable = map[string]setter{
	"compression":             func(c *Config, v interface{}) error { return weak(v, &c.Compression) },
	"foreman_check_frequency": func(c *Config, v interface{}) error { return weak(v, &c.ForemanCheckFrequency) },
	"location":                func(c *Config, v interface{}) error { return weak(v, &c.Location) },
	"max_post_size":           func(c *Config, v interface{}) error { return weak(v, &c.MaxPostSize) },
	"max_out_queue":           func(c *Config, v interface{}) error { return weak(v, &c.MaxOutQueue) },
	"poll_min":                func(c *Config, v interface{}) error { return weak(v, &c.PollMin) },
	"poll_max":                func(c *Config, v interface{}) error { return weak(v, &c.PollMax) },
	"poll_slew":               func(c *Config, v interface{}) error { return weak(v, &c.PollSlew) },
	"rss_max":                 func(c *Config, v interface{}) error { return weak(v, &c.RSSMax) },
	"verbose":                 func(c *Config, v interface{}) error { return weak(v, &c.Verbose) },
}

func weak(value interface{}, target interface{}) error {
	return mapstructure.WeakDecode(value, target)
}

// Updatable reports whether a field may be mutated remotely.
func Updatable(field string) bool {
	_, ok := updatable[field]
	return ok
}

// Persister stores the current configuration durably.
type Persister interface {
	Persist(*Config) error
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc func(*Config) error

func (fn PersistFunc) Persist(c *Config) error { return fn(c) }

// FilePersister writes the config to a fixed path.
type FilePersister struct {
	Path string
}

func (p *FilePersister) Persist(c *Config) error { return Write(c, p.Path) }

// Updater applies whitelisted remote configuration changes to a worker-owned
// Config.
type Updater struct {
	log   logging.Logger
	mu    sync.Mutex
	cfg   *Config
	store Persister
}

func NewUpdater(log logging.Logger, cfg *Config, store Persister) *Updater {
	return &Updater{
		log:   log,
		cfg:   cfg,
		store: store,
	}
}

// Update applies each whitelisted pair to the running config and returns the
// names applied. Disallowed fields are rejected individually; processing
// always continues, partial success is the normal case. After applying, the
// updated set is persisted best-effort: a persistence failure leaves the
// in-memory values authoritative and is not surfaced to the requester.
func (u *Updater) Update(pairs map[string]interface{}) []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	applied := make([]string, 0, len(pairs))
	var disallowed []string
	for field, value := range pairs {
		set, ok := updatable[field]
		if !ok {
			disallowed = append(disallowed, field)
			continue
		}
		if err := set(u.cfg, value); err != nil {
			u.log.WithError(err).WithField("field", field).
				Warn("could not coerce updated value")
			continue
		}
		applied = append(applied, field)
	}

	if len(disallowed) > 0 {
		u.log.WithField("fields", disallowed).
			Warn("received an update request for restricted fields")
	}

	if u.store != nil {
		if err := u.store.Persist(u.cfg); err != nil {
			// Durability is lost but the running values stand.
			u.log.WithError(err).Warn("could not persist updated config")
		}
	}

	return applied
}

// Snapshot returns a copy of the running configuration.
func (u *Updater) Snapshot() Config {
	u.mu.Lock()
	defer u.mu.Unlock()
	return *u.cfg
}
