package models

import "time"

// DeviceStatus is a periodic health snapshot of the agent host.
type DeviceStatus struct {
	DeviceID          string    `json:"device_id"`
	Timestamp         time.Time `json:"timestamp"`
	UptimeSeconds     uint64    `json:"uptime_seconds"`
	CPUUsagePercent   *float64  `json:"cpu_usage_percent"`
	MemoryUsedPercent *float64  `json:"memory_used_percent"`
	LocationSource    string    `json:"location_source"`
}
