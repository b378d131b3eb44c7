// Package cache refreshes the package manager's updateinfo cache before a
// run reads it.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	dnfBin = "/usr/bin/dnf"
	yumBin = "/usr/bin/yum"
)

// Refresher shells out to dnf or yum makecache for the configured
// repositories.
type Refresher struct {
	logger *slog.Logger

	// dnfMarker decides which package manager to invoke; dnf wins when its
	// config directory exists.
	dnfMarker string
}

func NewRefresher(logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{logger: logger, dnfMarker: "/etc/dnf"}
}

// Command builds the makecache invocation for the given repositories under
// the given installroot. All repositories are disabled first so only the
// requested ones refresh.
func (r *Refresher) Command(ctx context.Context, root string, repos []string) *exec.Cmd {
	bin := yumBin
	if _, err := os.Stat(r.dnfMarker); err == nil {
		bin = dnfBin
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	args := []string{"makecache", "--installroot", absRoot, "--disablerepo", "*"}
	for _, repo := range repos {
		args = append(args, "--enablerepo", repo)
	}

	return exec.CommandContext(ctx, bin, args...)
}

// Refresh runs makecache and surfaces stderr in the error on failure.
func (r *Refresher) Refresh(ctx context.Context, root string, repos []string) error {
	cmd := r.Command(ctx, root, repos)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Info("refreshing package cache",
		"command", cmd.Path,
		"repos", repos,
		"root", root)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("makecache failed: %w: %s", err, stderr.String())
	}

	return nil
}
