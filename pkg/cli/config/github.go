package config

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// GitHub carries the repository coordinate and the credentials used for
// every GitHub API call. Repository and Branch can come from flags or from
// a YAML config file; flags win.
type GitHub struct {
	configFile string

	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch,omitempty"`

	token          string
	appID          int64
	installationID int64
	privateKey     string
}

func (x *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository",
			Aliases:     []string{"r"},
			Usage:       "Target repository in 'owner/name' format",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_REPOSITORY"),
			Destination: &x.Repository,
		},
		&cli.StringFlag{
			Name:        "branch",
			Aliases:     []string{"b"},
			Usage:       "Branch to expose (default: the repository's default branch)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_BRANCH"),
			Destination: &x.Branch,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file (repository, branch)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_CONFIG"),
			Destination: &x.configFile,
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub access token",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_GITHUB_TOKEN", "GITHUB_TOKEN"),
			Destination: &x.token,
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID (alternative to token auth)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_GITHUB_APP_ID"),
			Destination: &x.appID,
		},
		&cli.Int64Flag{
			Name:        "github-app-installation-id",
			Usage:       "GitHub App Installation ID",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_GITHUB_APP_INSTALLATION_ID"),
			Destination: &x.installationID,
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App private key (PEM format)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("GITSHELF_GITHUB_APP_PRIVATE_KEY"),
			Destination: &x.privateKey,
		},
	}
}

func (x GitHub) LogValue() slog.Value {
	authMethod := "none"
	switch {
	case x.appID != 0:
		authMethod = "github-app"
	case x.token != "":
		authMethod = "token"
	}

	return slog.GroupValue(
		slog.String("repository", x.Repository),
		slog.String("branch", x.Branch),
		slog.String("config_file", x.configFile),
		slog.String("auth", authMethod),
	)
}

// Load merges the YAML config file into fields not already set by flags.
func (x *GitHub) Load() error {
	if x.configFile == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Clean(x.configFile))
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", x.configFile))
	}

	var fileCfg GitHub
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", x.configFile))
	}

	if x.Repository == "" {
		x.Repository = fileCfg.Repository
	}
	if x.Branch == "" {
		x.Branch = fileCfg.Branch
	}

	return nil
}

// Configure builds the GitHub API client. GitHub App credentials take
// precedence over a token; with neither, an unauthenticated client is
// returned and only public repositories are reachable.
func (x *GitHub) Configure(ctx context.Context) (*github.Client, error) {
	if err := x.Load(); err != nil {
		return nil, err
	}

	if x.appID != 0 || x.installationID != 0 || x.privateKey != "" {
		if x.appID == 0 || x.installationID == 0 || x.privateKey == "" {
			return nil, goerr.New("github-app-id, github-app-installation-id and github-app-private-key must be set together")
		}

		transport, err := ghinstallation.New(http.DefaultTransport, x.appID, x.installationID, []byte(x.privateKey))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub App transport")
		}

		return github.NewClient(&http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		}), nil
	}

	if x.token != "" {
		return github.NewClient(nil).WithAuthToken(x.token), nil
	}

	return github.NewClient(nil), nil
}

// Helper methods for testing
func (x *GitHub) SetTestData(configFile, token string) {
	x.configFile = configFile
	x.token = token
}

func (x *GitHub) SetAppTestData(appID, installationID int64, privateKey string) {
	x.appID = appID
	x.installationID = installationID
	x.privateKey = privateKey
}
