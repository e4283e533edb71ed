package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
)

const fetchTimeout = 60 * time.Second

// IsRemoteSource reports whether src has to be downloaded before it can be read,
// e.g. "https://example.com/tracer.toml" or "git::https://github.com/org/repo//tracer.toml".
func IsRemoteSource(src string) bool {
	if _, err := os.Stat(src); err == nil {
		return false
	}
	return strings.Contains(src, "::") || strings.Contains(src, "://")
}

// FetchConfig downloads a remote config source with go-getter into dstDir and returns
// the local file path. Local paths are returned untouched.
func FetchConfig(ctx context.Context, src string, dstDir string) (string, error) {
	if !IsRemoteSource(src) {
		return src, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve working directory: %w", ErrConfig, err)
	}

	dst := filepath.Join(dstDir, remoteFileName(src))
	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	log.Info().Str("source", src).Str("destination", dst).Msg("Fetching remote config")
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("%w: failed to fetch config from %s: %w", ErrConfig, src, err)
	}
	return dst, nil
}

// remoteFileName keeps the .toml suffix of the source so the loader accepts the download
func remoteFileName(src string) string {
	trimmed := src
	if idx := strings.Index(trimmed, "?"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	name := path.Base(trimmed)
	if !strings.HasSuffix(name, ".toml") {
		return "tracer.toml"
	}
	return name
}

// LoadTracerConfigFrom loads a config from a local path or any go-getter source
func (cl *TracerConfigLoader) LoadTracerConfigFrom(ctx context.Context, src string) (*TracerConfig, error) {
	if !IsRemoteSource(src) {
		return cl.LoadTracerConfig(src)
	}
	dir, err := os.MkdirTemp("", "balance-tracer-config-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp dir: %w", ErrConfig, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove temp config dir")
		}
	}()

	local, err := FetchConfig(ctx, src, dir)
	if err != nil {
		return nil, err
	}
	return cl.LoadTracerConfig(local)
}
