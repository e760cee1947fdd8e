package docker

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for encmusic resources
const (
	LabelProject       = "encmusic.project"
	LabelInstanceName  = "encmusic.instance.name"
	LabelInstanceRunID = "encmusic.instance.run_id"
	LabelComponent     = "encmusic.component"
	LabelRedisPort     = "encmusic.redis.port"
)

// ComponentCache is the component label of local cache containers.
const ComponentCache = "cache"

// BuildLabels creates the standard label set for encmusic resources.
// component may be empty.
func BuildLabels(instanceName, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject:       "true",
		LabelInstanceName:  instanceName,
		LabelInstanceRunID: runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for a cache run.
// Each invocation of `encmusic cache up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// CacheContainerName returns the Redis container name for a cache instance
func CacheContainerName(instanceName string) string {
	return fmt.Sprintf("encmusic-cache-%s", instanceName)
}
