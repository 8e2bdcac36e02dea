package core

import "os"

// IsKubernetes reports whether the process runs inside a Kubernetes pod.
// It is the cluster-orchestration signal consumed by the wiring table.
func IsKubernetes() bool {
	return os.Getenv(EnvKubernetesServiceHost) != ""
}

// IsCloudFoundry reports whether the process runs inside a Cloud Foundry container.
func IsCloudFoundry() bool {
	return os.Getenv(EnvVCAPApplication) != ""
}
