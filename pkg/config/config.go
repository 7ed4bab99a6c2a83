package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
)

type PlayoutConfig struct {
	Capture   Capture
	Fetch     Fetch
	Library   Library
	Playout   Playout
	Recording Recording
	Render    Render
	Storage   Storage
	Webrtc    Webrtc
}

type Playout struct {
	AutoPlay   string
	Debug      bool
	Monitoring Monitoring
	Rate       float64
	Server     Server
	Tag        string
}

type Render struct {
	Audio struct {
		Device   string
		Dir      string
		BufferMs int
	}
	Video struct {
		Fps float64
	}
}

type Capture struct {
	Audio struct {
		// viewer stream frame length, one of Opus' 5/10/20/40/60
		BufferMs int
		// stream rate conversion backend: sox or linear
		Resampler string
	}
	Video struct {
		Overlay bool
	}
}

type Library struct {
	// the root folder with session recordings
	BasePath string
	// a list of supported archive extensions
	Supported []string
	// a list of ignored session names
	Ignored []string
	// print the scanned library on each scan
	Verbose bool
	// rescan on root folder changes
	WatchMode bool
}

type Recording struct {
	Enabled bool
	Name    string
	Folder  string
	Zip     bool
}

type Fetch struct {
	Dir     string
	Urls    []string
	Workers int
}

type Storage struct {
	Provider string
	// gcs
	Bucket string
	Key    string
	// oracle pre-authenticated request
	AccessURL string
	// s3
	S3Endpoint        string
	S3BucketName      string
	S3AccessKeyId     string
	S3SecretAccessKey string
}

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool `json:"metric_enabled"`
	ProfilingEnabled bool `json:"profiling_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Server struct {
	Address string
	Https   bool
	Tls     struct {
		Address   string
		Domain    string
		HttpsKey  string
		HttpsCert string
	}
}

func (s *Server) WithFlags() {
	flag.StringVar(&s.Address, "address", s.Address, "HTTP server address (host:port)")
	flag.StringVar(&s.Tls.Address, "httpsAddress", s.Tls.Address, "HTTPS server address (host:port)")
	flag.StringVar(&s.Tls.HttpsKey, "httpsKey", s.Tls.HttpsKey, "HTTPS key")
	flag.StringVar(&s.Tls.HttpsCert, "httpsCert", s.Tls.HttpsCert, "HTTPS chain")
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

// allows custom config path
var playoutConfigPath string

func NewPlayoutConfig() (conf PlayoutConfig) {
	if playoutConfigPath == "" {
		playoutConfigPath = confDirFromArgs()
	}
	if err := LoadConfig(&conf, playoutConfigPath); err != nil {
		panic(err)
	}
	conf.expandSpecialTags()
	conf.fixValues()
	return
}

// confDirFromArgs pre-reads the --conf flag: the config has to be
// loaded before the full flag set can take its defaults from it.
func confDirFromArgs() string {
	args := os.Args[1:]
	for i, a := range args {
		if a == "--conf" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--conf="); ok {
			return v
		}
	}
	return ""
}

// ParseFlags updates config values from passed runtime flags.
// Define own flags with default value set to the current config param.
// Don't forget to call flag.Parse().
func (c *PlayoutConfig) ParseFlags() {
	c.Playout.Server.WithFlags()
	flag.IntVar(&c.Playout.Monitoring.Port, "monitoring.port", c.Playout.Monitoring.Port, "Monitoring server port")
	flag.StringVar(&c.Playout.AutoPlay, "session", c.Playout.AutoPlay, "Session to play right after the start")
	flag.Float64Var(&c.Playout.Rate, "rate", c.Playout.Rate, "Initial playback rate")
	flag.BoolVar(&c.Recording.Enabled, "record", c.Recording.Enabled, "Re-capture the playback into a new recording")
	flag.StringVar(&playoutConfigPath, "conf", playoutConfigPath, "Set a custom configuration directory")
	flag.Parse()
}

// expandSpecialTags replaces all the special tags in the config.
func (c *PlayoutConfig) expandSpecialTags() {
	tag := "{user}"
	for _, dir := range []*string{&c.Library.BasePath, &c.Recording.Folder, &c.Fetch.Dir, &c.Render.Audio.Dir} {
		if *dir == "" || !strings.Contains(*dir, tag) {
			continue
		}
		userHomeDir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("couldn't read user home directory, %v", err))
		}
		*dir = strings.Replace(*dir, tag, userHomeDir, -1)
		*dir = filepath.FromSlash(*dir)
	}
}

// fixValues tries to fix some values otherwise hard to set externally.
func (c *PlayoutConfig) fixValues() {
	// with ICE lite we clear ICE servers
	if c.Webrtc.IceLite {
		c.Webrtc.IceServers = []IceServer{}
	}
	if c.Playout.Rate == 0 {
		c.Playout.Rate = 1
	}
}

// GetAddr returns defined in the config server address.
func (p *Playout) GetAddr() string { return p.Server.GetAddr() }
