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
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveEndpointForDocker rewrites a loopback AI endpoint (a local
// OpenAI-compatible server) to host.docker.internal when running in Docker.
// Anything else, including unparsable URLs, is returned unchanged.
func ResolveEndpointForDocker(endpoint string) string {
	return resolveEndpoint(endpoint, IsRunningInDocker())
}

func resolveEndpoint(endpoint string, inDocker bool) string {
	if !inDocker || endpoint == "" {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return endpoint
	}
	if port := u.Port(); port != "" {
		u.Host = "host.docker.internal:" + port
	} else {
		u.Host = "host.docker.internal"
	}
	return u.String()
}
