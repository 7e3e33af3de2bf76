// Package influxdb mirrors monitor readings into InfluxDB.
//
// The mirror is optional and never on the MQTT path: points are queued on
// the client's non-blocking write API and flushed in batches, and write
// failures are reported through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror not configured
//	}
//	defer client.Close()
//
//	client.WriteMonitorSample("pi1", "system", "memory_used", "bytes", "1048576", time.Now())
package influxdb
