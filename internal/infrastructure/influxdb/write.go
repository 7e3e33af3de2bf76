package influxdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MonitorMeasurement is the measurement every monitor reading is written to.
const MonitorMeasurement = "monitor_samples"

// WriteMonitorSample queues one monitor reading. It never blocks.
//
// Numeric readings (including numeric strings such as "1048576") are stored
// in the float field "value"; anything else is stored as the string field "text".
func (c *Client) WriteMonitorSample(device, subsystem, monitor, units string, value any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(monitorPoint(device, subsystem, monitor, units, value, ts))
}

func monitorPoint(device, subsystem, monitor, units string, value any, ts time.Time) *write.Point {
	tags := map[string]string{
		"device":    device,
		"subsystem": subsystem,
		"monitor":   monitor,
	}
	if units != "" {
		tags["units"] = units
	}
	return write.NewPoint(MonitorMeasurement, tags, sampleFields(value), ts)
}

func sampleFields(value any) map[string]interface{} {
	if f, ok := numeric(value); ok {
		return map[string]interface{}{"value": f}
	}
	return map[string]interface{}{"text": textOf(value)}
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func textOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}
