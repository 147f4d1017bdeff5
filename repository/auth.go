package repository

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/utilitywarehouse/forge-mirror/giturl"
)

const loadCredsScript = `#!/bin/sh

case "$1" in
  Username*) echo "$REPO_USERNAME" ;;
  Password*) echo "$REPO_PASSWORD" ;;
esac
`

// Auth represents authentication config used for fetching remotes
type Auth struct {
	// username to use for basic or token based authentication
	Username string `yaml:"username"`

	// password or personal access token to use for authentication
	Password string `yaml:"password"`

	// path to the ssh key used to fetch remote
	SSHKeyPath string `yaml:"ssh_key_path"`

	// path to the known hosts of the remote host
	SSHKnownHostsPath string `yaml:"ssh_known_hosts_path"`
}

// env returns environment variables which configure git authentication
// for the given remote url
func (a *Auth) env(gitDir, remote string, log *slog.Logger) []string {
	var envs []string

	if giturl.IsSCPURL(remote) || giturl.IsSSHURL(remote) {
		envs = append(envs, a.gitSSHCommand())
		return envs
	}

	// if url not ssh or https nothing to set
	if !giturl.IsHTTPSURL(remote) {
		return nil
	}

	var username, password string
	switch {
	// if username & password is set use that
	case a.Username != "" && a.Password != "":
		username = a.Username
		password = a.Password

	// if only password (token) is set use that
	case a.Password != "":
		username = "-" // username is required
		password = a.Password

	default:
		return nil
	}

	credsLoader, err := ensureCredsLoader(gitDir)
	if err != nil {
		log.Error("unable to write load creds script file", "err", err)
		return nil
	}

	envs = append(envs, fmt.Sprintf(`GIT_ASKPASS=%s`, credsLoader))
	envs = append(envs, fmt.Sprintf(`REPO_USERNAME=%s`, username))
	envs = append(envs, fmt.Sprintf(`REPO_PASSWORD=%s`, password))

	return envs
}

func ensureCredsLoader(gitDir string) (string, error) {
	credsLoader := filepath.Join(gitDir, "forge-mirror-creds-loader.sh")

	_, err := os.Stat(credsLoader)
	switch {
	case os.IsNotExist(err):
		if err := os.WriteFile(credsLoader, []byte(loadCredsScript), 0750); err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("unable to check if script file exits err:%w", err)
	}

	return credsLoader, nil
}

// gitSSHCommand returns the environment variable to be used for configuring
// git over ssh.
func (a *Auth) gitSSHCommand() string {
	sshKeyPath := a.SSHKeyPath
	if sshKeyPath == "" {
		sshKeyPath = "/dev/null"
	}
	knownHostsOptions := "-o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"
	if a.SSHKeyPath != "" && a.SSHKnownHostsPath != "" {
		knownHostsOptions = fmt.Sprintf("-o UserKnownHostsFile=%s", a.SSHKnownHostsPath)
	}
	return fmt.Sprintf(`GIT_SSH_COMMAND=ssh -q -F none -o IdentitiesOnly=yes -o IdentityFile=%s %s`, sshKeyPath, knownHostsOptions)
}
