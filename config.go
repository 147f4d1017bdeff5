package main

import (
	"fmt"
	"os"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/forge-mirror/repository"
)

const (
	defaultBranch        = "forge-mirror"
	defaultCommitMessage = "Update forge metadata mirror"
	defaultHost          = "github.com"
	defaultEndpoint      = "https://api.github.com"
	defaultPageSize      = 100
)

// Config is the top level config of the mirror
type Config struct {
	// path of (or inside) the local working tree, defaults to the
	// current directory
	Path string `yaml:"path"`

	// name of the data branch metadata is committed to
	Branch string `yaml:"branch"`

	// message of data branch commits
	CommitMessage string `yaml:"commit_message"`

	API APIConfig `yaml:"api"`

	// auth used for fetching remotes and wikis over git
	Auth repository.Auth `yaml:"auth"`
}

// APIConfig configures the forge API client
type APIConfig struct {
	// API endpoint, override for GitHub Enterprise installations
	Endpoint string `yaml:"endpoint"`

	// host remotes must point at to be considered crawl targets
	Host string `yaml:"host"`

	// personal access token, ignored when a github app is configured
	Token string `yaml:"token"`

	// page size of list calls
	PageSize int `yaml:"page_size"`

	GithubApp *GithubAppConfig `yaml:"github_app"`
}

// GithubAppConfig configures GitHub App installation token auth
type GithubAppConfig struct {
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

func parseConfigFile(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateConfigYAML(yamlFile); err != nil {
		return nil, err
	}

	conf := &Config{}
	if err := yaml.Unmarshal(yamlFile, conf); err != nil {
		return nil, err
	}

	applyDefaults(conf)

	if conf.API.GithubApp != nil {
		app := conf.API.GithubApp
		if app.AppID == "" || app.InstallationID == "" || app.PrivateKeyPath == "" {
			return nil, fmt.Errorf("github_app config requires app_id, installation_id and private_key_path")
		}
	}

	return conf, nil
}

func applyDefaults(conf *Config) {
	if conf.Path == "" {
		conf.Path = "."
	}
	if conf.Branch == "" {
		conf.Branch = defaultBranch
	}
	if conf.CommitMessage == "" {
		conf.CommitMessage = defaultCommitMessage
	}
	if conf.API.Host == "" {
		conf.API.Host = defaultHost
	}
	if conf.API.Endpoint == "" {
		conf.API.Endpoint = defaultEndpoint
	}
	if conf.API.PageSize == 0 {
		conf.API.PageSize = defaultPageSize
	}
}

// validateConfigYAML checks config sections for unexpected keys, a typo
// in a config key must fail loudly instead of silently using a default
func validateConfigYAML(yamlData []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return err
	}

	if key := findUnexpectedKey(raw, getAllowedKeys(Config{})); key != "" {
		return fmt.Errorf("unexpected key: .%v", key)
	}

	if apiMap, ok := raw["api"].(map[string]interface{}); ok {
		if key := findUnexpectedKey(apiMap, getAllowedKeys(APIConfig{})); key != "" {
			return fmt.Errorf("unexpected key: .api.%v", key)
		}
		if appMap, ok := apiMap["github_app"].(map[string]interface{}); ok {
			if key := findUnexpectedKey(appMap, getAllowedKeys(GithubAppConfig{})); key != "" {
				return fmt.Errorf("unexpected key: .api.github_app.%v", key)
			}
		}
	}

	if authMap, ok := raw["auth"].(map[string]interface{}); ok {
		if key := findUnexpectedKey(authMap, getAllowedKeys(repository.Auth{})); key != "" {
			return fmt.Errorf("unexpected key: .auth.%v", key)
		}
	}

	return nil
}

// getAllowedKeys retrieves a list of allowed keys from the specified struct
func getAllowedKeys(config interface{}) []string {
	var allowedKeys []string
	typ := reflect.TypeOf(config)

	for i := 0; i < typ.NumField(); i++ {
		yamlTag := typ.Field(i).Tag.Get("yaml")
		if yamlTag != "" {
			allowedKeys = append(allowedKeys, yamlTag)
		}
	}
	return allowedKeys
}

func findUnexpectedKey(raw map[string]interface{}, allowedKeys []string) string {
	for key := range raw {
		if !slices.Contains(allowedKeys, key) {
			return key
		}
	}

	return ""
}
