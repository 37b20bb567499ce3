package state

import (
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/internal/serial"
	"github.com/telepanel/telepanel/internal/telemachus"
	"github.com/telepanel/telepanel/log2"
)

const DefaultConfigName = "telepanel.hcl"

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	// Device empty means auto-detect with Detect.Patterns.
	Device   string `hcl:"device"`
	Baud     int    `hcl:"baud"`
	LogDebug bool   `hcl:"log_debug"`

	Telemachus struct {
		URL string `hcl:"url"`
		// DryRun logs commands but never sends them.
		DryRun bool `hcl:"dry_run"`
	} `hcl:"telemachus"`

	Heartbeat struct {
		Disable    bool   `hcl:"disable"`
		IntervalMs int    `hcl:"interval_ms"`
		Token      string `hcl:"token"`
	} `hcl:"heartbeat"`

	Metrics struct {
		// Listen empty disables metrics HTTP endpoint.
		Listen string `hcl:"listen"`
	} `hcl:"metrics"`

	Detect struct {
		Patterns []string `hcl:"patterns"`
	} `hcl:"detect"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// ApplyDefaults fills zero values. Safe to call multiple times.
func (c *Config) ApplyDefaults() {
	if c.Baud == 0 {
		c.Baud = serial.DefaultBaud
	}
	if c.Telemachus.URL == "" {
		c.Telemachus.URL = telemachus.DefaultURL
	}
	if c.Heartbeat.Token == "" {
		c.Heartbeat.Token = serial.DefaultHeartbeatToken
	}
	if len(c.Detect.Patterns) == 0 {
		c.Detect.Patterns = serial.DefaultDetectPatterns
	}
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if c.Baud < 0 {
		errs = append(errs, errors.NotValidf("config: baud=%d", c.Baud))
	}
	if c.Heartbeat.IntervalMs < 0 {
		errs = append(errs, errors.NotValidf("config: heartbeat.interval_ms=%d", c.Heartbeat.IntervalMs))
	}
	if _, err := telemachus.NewClient(nil, c.Telemachus.URL, nil); err != nil {
		errs = append(errs, errors.Annotate(err, "config: telemachus.url"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) HeartbeatInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.Heartbeat.IntervalMs, serial.DefaultHeartbeatInterval)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads sources in order, later values overwrite earlier.
// No sources gives defaults.
func ReadConfig(log *log2.Log, fs FullReader, sources ...ConfigSource) (*Config, error) {
	if osfs, ok := fs.(*OsFullReader); ok && len(sources) != 0 {
		dir, name := filepath.Split(sources[0].Name)
		osfs.SetBase(dir)
		sources[0].Name = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, source := range sources {
		c.read(log, fs, source, &errs)
	}
	c.ApplyDefaults()
	if err := helpers.FoldErrors(errs); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func MustReadConfig(log *log2.Log, fs FullReader, sources ...ConfigSource) *Config {
	c, err := ReadConfig(log, fs, sources...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
