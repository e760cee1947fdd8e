package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("default", "run-123", ComponentCache)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "default", labels[LabelInstanceName])
	assert.Equal(t, "run-123", labels[LabelInstanceRunID])
	assert.Equal(t, "cache", labels[LabelComponent])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_NoComponent(t *testing.T) {
	labels := BuildLabels("dev", "run-456", "")

	assert.Equal(t, "dev", labels[LabelInstanceName])
	assert.NotContains(t, labels, LabelComponent)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	runID1 := GenerateRunID()
	runID2 := GenerateRunID()

	_, err := uuid.Parse(runID1)
	assert.NoError(t, err)
	_, err = uuid.Parse(runID2)
	assert.NoError(t, err)

	assert.NotEqual(t, runID1, runID2)
}

func TestCacheContainerName(t *testing.T) {
	assert.Equal(t, "encmusic-cache-default", CacheContainerName("default"))
}
