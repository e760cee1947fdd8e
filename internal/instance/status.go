package instance

import (
	"sort"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	dockerpkg "github.com/dyluth/encoding-music/internal/docker"
)

// Status summarizes the containers behind one cache.
type Status string

const (
	StatusRunning  Status = "Running"
	StatusDegraded Status = "Degraded" // some containers stopped
	StatusStopped  Status = "Stopped"
)

// DetermineStatus reports Running only when every container runs.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	runningCount := 0
	for _, c := range containers {
		if c.State == "running" {
			runningCount++
		}
	}

	switch {
	case runningCount == len(containers):
		return StatusRunning
	case runningCount > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}

// CacheInfo is one row of 'encmusic cache status'.
type CacheInfo struct {
	Name    string    `json:"name"`
	Status  Status    `json:"status"`
	Port    int       `json:"port"`
	URL     string    `json:"url"`
	Created time.Time `json:"created"`
}

// Describe groups cache containers by instance name, sorted by name.
func Describe(containers []types.Container) []CacheInfo {
	byName := make(map[string][]types.Container)
	for _, c := range containers {
		name := c.Labels[dockerpkg.LabelInstanceName]
		byName[name] = append(byName[name], c)
	}

	infos := make([]CacheInfo, 0, len(byName))
	for name, group := range byName {
		info := CacheInfo{Name: name, Status: DetermineStatus(group)}
		for _, c := range group {
			if port, err := strconv.Atoi(c.Labels[dockerpkg.LabelRedisPort]); err == nil {
				info.Port = port
				info.URL = GetRedisURL(port)
			}
			if created := time.Unix(c.Created, 0); created.After(info.Created) {
				info.Created = created
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
