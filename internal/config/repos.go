package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Repo is one repository to ingest
type Repo struct {
	// ID is the repository id as the package manager knows it,
	// e.g. "rhel-7-server-rpms".
	ID string `yaml:"id"`

	// Name is an optional human-readable label.
	Name string `yaml:"name"`
}

// ReposFile is the YAML document listing the repositories of a run. Order
// matters: the first repository to carry an advisory owns its content in the
// merged set.
type ReposFile struct {
	Repos []Repo `yaml:"repos"`
}

// LoadRepos reads and validates the repos file
func LoadRepos(path string) (*ReposFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read repos file: %w", err)
	}

	var rf ReposFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse repos file: %w", err)
	}

	if len(rf.Repos) == 0 {
		return nil, fmt.Errorf("repos file lists no repositories: %s", path)
	}

	seen := make(map[string]bool, len(rf.Repos))
	for i, repo := range rf.Repos {
		if repo.ID == "" {
			return nil, fmt.Errorf("repository %d has no id", i)
		}
		if seen[repo.ID] {
			return nil, fmt.Errorf("repository %s listed twice", repo.ID)
		}
		seen[repo.ID] = true
	}

	return &rf, nil
}
