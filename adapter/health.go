// Package adapter wires shmstate into external monitoring systems: a
// healthcheck HTTP handler and opt-in OpenTelemetry instrumentation.
package adapter

import (
	"fmt"
	"os"
	"runtime"

	"github.com/heptiolabs/healthcheck"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/srediag/shmstate"
)

// HealthConfig tunes the checks registered by NewHealthHandler.
type HealthConfig struct {
	// MinFreeBytes fails readiness when the shared-memory filesystem has
	// less free space than this. Default 1 MiB.
	MinFreeBytes uint64
}

// NewHealthHandler returns an HTTP handler exposing /live and /ready.
// Liveness probes that the shared-memory filesystem is writable; readiness
// adds a free-space floor and a responsive subscription registry.
func NewHealthHandler(cfg HealthConfig) healthcheck.Handler {
	if cfg.MinFreeBytes == 0 {
		cfg.MinFreeBytes = 1 << 20
	}
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("shm-dir-writable", shmDirWritable)
	health.AddReadinessCheck("shm-free-space", shmFreeSpace(cfg.MinFreeBytes))
	health.AddReadinessCheck("subscription-registry", registryResponsive)
	return health
}

func shmDirWritable() error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("named shared memory unsupported on %s", runtime.GOOS)
	}
	f, err := os.CreateTemp("/dev/shm", "shmstate.health.*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func shmFreeSpace(min uint64) healthcheck.Check {
	return func() error {
		stat, err := disk.Usage("/dev/shm")
		if err != nil {
			return err
		}
		if stat.Free < min {
			return fmt.Errorf("only %d bytes free on /dev/shm, want %d", stat.Free, min)
		}
		return nil
	}
}

// A wedged registry would hang the snapshot; returning at all means it
// answered.
func registryResponsive() error {
	_ = shmstate.Subscriptions()
	return nil
}
