package config

import (
	"net/url"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps a loopback engine or oracle host to host.docker.internal
// when running in a container, so a batch URL written for the host machine
// still reaches services running there. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}

// ResolveURLForDocker applies ResolveHostForDocker to the host of an endpoint URL.
// Unparseable URLs are returned unchanged.
func ResolveURLForDocker(raw string) string {
	return resolveURL(raw, IsRunningInDocker())
}

func resolveURL(raw string, inDocker bool) string {
	if raw == "" || !inDocker {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	resolved := resolveHost(u.Hostname(), true)
	if resolved == u.Hostname() {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = resolved + ":" + port
	} else {
		u.Host = resolved
	}
	return u.String()
}
