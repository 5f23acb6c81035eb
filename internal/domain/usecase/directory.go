package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// ErrDeviceUnavailable wraps any directory or credential failure for one
// station. The run is aborted; the cycle continues.
var ErrDeviceUnavailable = errors.New("device unavailable")

const processedDeviceType = "weather_station_processed"

// DeviceRepo is the slice of the telemetry platform the directory needs.
// FindDevice returns (nil, nil) when no device carries the name.
type DeviceRepo interface {
	FindDevice(ctx context.Context, name string) (*entity.Device, error)
	CreateDevice(ctx context.Context, name, deviceType, label string) (*entity.Device, error)
	GetDeviceToken(ctx context.Context, deviceID string) (string, error)
}

// DeviceDirectory maps canonical station names to platform devices,
// cache-aside over the remote directory. The cache lives for the process
// lifetime and is written only by the sync worker; the lock exists for the
// read-only snapshots served over HTTP.
type DeviceDirectory struct {
	Devices DeviceRepo

	mu    sync.RWMutex
	cache map[string]*entity.Device
}

func NewDeviceDirectory(devices DeviceRepo) *DeviceDirectory {
	return &DeviceDirectory{
		Devices: devices,
		cache:   make(map[string]*entity.Device),
	}
}

// DeviceName converts a canonical station token ("SERRA_TALHADA") into the
// platform display name ("SERRA TALHADA - Processed").
func DeviceName(station string) string {
	return strings.ReplaceAll(station, "_", " ") + " - Processed"
}

// GetOrCreate returns the device for a station, looking it up remotely and
// creating it when absent. It never returns a device without a push token.
// The name lookup is the only duplicate guard; two concurrent callers could
// race a create, which is accepted because the pipeline runs single-worker.
func (d *DeviceDirectory) GetOrCreate(ctx context.Context, station string) (*entity.Device, error) {
	name := DeviceName(station)

	d.mu.RLock()
	cached, ok := d.cache[name]
	d.mu.RUnlock()
	if ok {
		return cached, nil
	}

	device, err := d.Devices.FindDevice(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: find %q: %v", ErrDeviceUnavailable, name, err)
	}

	if device == nil {
		label := "Processed Data - " + station
		device, err = d.Devices.CreateDevice(ctx, name, processedDeviceType, label)
		if err != nil {
			return nil, fmt.Errorf("%w: create %q: %v", ErrDeviceUnavailable, name, err)
		}
		log.Printf("created device %q (id %s)", name, device.ID)
	}

	if device.Token == "" {
		token, err := d.Devices.GetDeviceToken(ctx, device.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: credentials for %q: %v", ErrDeviceUnavailable, name, err)
		}
		if token == "" {
			return nil, fmt.Errorf("%w: empty token for %q", ErrDeviceUnavailable, name)
		}
		device.Token = token
	}
	device.Name = name

	d.mu.Lock()
	d.cache[name] = device
	d.mu.Unlock()

	return device, nil
}

// CachedDevices snapshots the cache for the admin endpoint.
func (d *DeviceDirectory) CachedDevices() []entity.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	devices := make([]entity.Device, 0, len(d.cache))
	for _, device := range d.cache {
		devices = append(devices, *device)
	}
	return devices
}

// CacheSize reports how many devices are cached.
func (d *DeviceDirectory) CacheSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// ClearCache drops every cached device; the next run re-resolves remotely.
func (d *DeviceDirectory) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]*entity.Device)
}
