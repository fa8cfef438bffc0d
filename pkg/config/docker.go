package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker rewrites localhost to host.docker.internal when the
// process runs in a container, so a database on the host machine stays reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}

	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}

	return host
}
