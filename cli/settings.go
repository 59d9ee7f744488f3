package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"yellowpages-backend/github"
)

const envPrefix = "VENDORCTL"

// Settings is the vendorctl configuration: defaults, then the --config
// file, then VENDORCTL_* environment variables, then explicit flags.
type Settings struct {
	APIURL      string         `mapstructure:"api_url"`
	Token       string         `mapstructure:"token"`
	AdminSecret string         `mapstructure:"admin_secret"`
	GitHub      GitHubSettings `mapstructure:"github"`
}

type GitHubSettings struct {
	BaseURL string            `mapstructure:"base_url"`
	Token   string            `mapstructure:"token"`
	Owner   string            `mapstructure:"owner"`
	Name    string            `mapstructure:"name"`
	Branch  string            `mapstructure:"branch"`
	Files   []github.FileSpec `mapstructure:"files"`
}

func (g GitHubSettings) Repo() github.Repo {
	return github.Repo{Owner: g.Owner, Name: g.Name, Branch: g.Branch}
}

// DefaultFiles are the tracked files of the directory app.
func DefaultFiles() []github.FileSpec {
	return []github.FileSpec{
		{Remote: "frontend/src/App.js", Local: "frontend/src/App.js"},
		{Remote: "frontend/package.json", Local: "frontend/package.json"},
		{Remote: "backend/server.py", Local: "backend/server.py"},
		{Remote: "backend/requirements.txt", Local: "backend/requirements.txt"},
	}
}

// LoadSettings reads configuration. An empty path skips the config file.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("token", "")
	v.SetDefault("admin_secret", "")
	v.SetDefault("github.base_url", github.DefaultBaseURL)
	v.SetDefault("github.token", "")
	v.SetDefault("github.owner", "mysidehustle76")
	v.SetDefault("github.name", "Nadkar")
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.files", DefaultFiles())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	s.APIURL = strings.TrimRight(s.APIURL, "/")
	return &s, nil
}
