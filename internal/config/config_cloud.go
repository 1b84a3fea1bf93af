package config

import (
	"flag"
	"fmt"
)

// Cloud holds the OpenStack connection settings shared by the cloud tools.
type Cloud struct {
	Name       string // Entry in clouds.yaml
	CloudsFile string // Explicit clouds.yaml path
}

func registerCloud(fs *flag.FlagSet, c *Cloud) {
	fs.StringVar(&c.Name, "cloud", "", "cloud name in clouds.yaml, defaults to $OS_CLOUD")
	fs.StringVar(&c.CloudsFile, "clouds-file", "", "path to clouds.yaml, defaults to $OS_CLIENT_CONFIG_FILE or the standard locations")
}

func readCloudEnvironment(c *Cloud) {
	if c.Name == "" {
		envString("OS_CLOUD", &c.Name)
	}
	if c.CloudsFile == "" {
		envString("OS_CLIENT_CONFIG_FILE", &c.CloudsFile)
	}
}

// OBSConfig holds the settings of the object storage key fetcher.
type OBSConfig struct {
	Common
	Cloud
	Endpoint     string
	Region       string
	Bucket       string
	PathStyle    bool   // Bucket in the URL path instead of the host name
	Key          string // Object key of the private key
	Output       string // Local path of the private key
	State        string // Terraform state file, empty skips inventory generation
	InventoryDir string
	Inventory    string // Inventory file name without extension
}

// NewOBSConfig parses args and the environment.
func NewOBSConfig(args []string) (*OBSConfig, error) {
	cfg := &OBSConfig{}

	fs := flag.NewFlagSet("obscli", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	registerCloud(fs, &cfg.Cloud)
	fEndpoint := strFlag{v: "https://obs.eu-de.otc.t-systems.com"}
	fs.Var(&fEndpoint, "endpoint", "OBS endpoint")
	fs.StringVar(&cfg.Region, "region", "eu-de", "OBS region")
	fs.StringVar(&cfg.Bucket, "bucket", "obs-csm", "bucket holding the key")
	var fPathStyle boolFlag
	fs.Var(&fPathStyle, "path-style", "use path-style bucket addressing")
	fs.StringVar(&cfg.Key, "key", "", "object key of the private key (required)")
	fs.StringVar(&cfg.Output, "output", "", "local path of the private key (required)")
	fs.StringVar(&cfg.State, "state", "", "terraform state file for inventory generation")
	fs.StringVar(&cfg.InventoryDir, "inventory-dir", "inventory/prod", "inventory output directory")
	fs.StringVar(&cfg.Inventory, "name", "", "inventory file name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Endpoint = fEndpoint.v
	if !fEndpoint.set {
		envString("OBS_ENDPOINT", &cfg.Endpoint)
	}
	cfg.PathStyle = fPathStyle.v
	if !fPathStyle.set {
		envBool("OBS_PATH_STYLE", &cfg.PathStyle)
	}
	readCloudEnvironment(&cfg.Cloud)

	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.Key == "" || cfg.Output == "" {
		return nil, fmt.Errorf("%w: -key and -output are required", ErrMissing)
	}
	if cfg.State != "" && cfg.Inventory == "" {
		return nil, fmt.Errorf("%w: -name is required with -state", ErrMissing)
	}
	return cfg, nil
}

// Swift object states.
const (
	StatePresent = "present"
	StateAbsent  = "absent"
	StateFetch   = "fetch"
)

// SwiftConfig holds the settings of the Swift tool.
type SwiftConfig struct {
	Common
	Cloud
	Endpoint  string // Swift endpoint, the account path is appended; empty uses the catalog
	Container string
	Object    string
	Content   string // YAML file uploaded as the object body
	State     string
}

// NewSwiftConfig parses args and the environment.
func NewSwiftConfig(args []string) (*SwiftConfig, error) {
	cfg := &SwiftConfig{}

	fs := flag.NewFlagSet("swiftcli", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	registerCloud(fs, &cfg.Cloud)
	var fEndpoint strFlag
	fs.Var(&fEndpoint, "endpoint", "swift endpoint, defaults to the object-store catalog entry")
	fs.StringVar(&cfg.Container, "container", "", "container name")
	fs.StringVar(&cfg.Object, "object", "", "object name")
	fs.StringVar(&cfg.Content, "content", "", "YAML file to upload")
	fs.StringVar(&cfg.State, "state", StatePresent, "present, absent or fetch")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Endpoint = fEndpoint.v
	if !fEndpoint.set {
		envString("SWIFT_ENDPOINT", &cfg.Endpoint)
	}
	readCloudEnvironment(&cfg.Cloud)

	if cfg.ShowVersion {
		return cfg, nil
	}
	switch cfg.State {
	case StatePresent:
		if cfg.Container == "" {
			return nil, fmt.Errorf("%w: -container", ErrMissing)
		}
		if cfg.Object != "" && cfg.Content == "" {
			return nil, fmt.Errorf("%w: -content is required to upload an object", ErrMissing)
		}
	case StateAbsent:
		if cfg.Container == "" {
			return nil, fmt.Errorf("%w: -container", ErrMissing)
		}
	case StateFetch:
	default:
		return nil, fmt.Errorf("invalid state %q", cfg.State)
	}
	return cfg, nil
}
