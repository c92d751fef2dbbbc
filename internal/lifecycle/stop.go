package lifecycle

import (
	"context"

	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
	"keepwarm/internal/state"
)

// Stop stops the instance's container and deletes its record. When the stop
// call fails the record is kept so the stop can be retried.
func (m *Manager) Stop(ctx context.Context, name string) (*state.Record, error) {
	rec, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.InstanceNotFound(name)
	}
	log := logger.WithContext(ctx).WithFields(logger.Fields{
		"instance":     name,
		"container_id": rec.ContainerHandle,
	})

	if err := m.runtime.Stop(ctx, rec.ContainerHandle); err != nil {
		if !container.IsNotFound(err) {
			m.recordEvent(ctx, name, EventStopFailed, rec.ContainerHandle, rec.Port, err.Error())
			return nil, errors.StopFailed(name, rec.ContainerHandle, err)
		}
		log.Info("Container is already gone; removing its record")
	}

	if err := m.store.Delete(name); err != nil {
		return nil, err
	}
	m.recordEvent(ctx, name, EventStopped, rec.ContainerHandle, rec.Port, "")
	log.Info("Instance stopped")
	return rec, nil
}

// Prune deletes every record whose container is not running and returns the
// names it removed.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, rec := range records {
		running, err := m.runtime.IsRunning(ctx, rec.ContainerHandle)
		if err != nil {
			return pruned, err
		}
		if running {
			continue
		}
		if err := m.store.Delete(rec.InstanceName); err != nil {
			return pruned, err
		}
		logger.WithContext(ctx).WithField("instance", rec.InstanceName).Info("Pruned stale instance record")
		pruned = append(pruned, rec.InstanceName)
	}
	return pruned, nil
}
