package envelope

import (
	"fmt"
	"strings"
)

// Fixed segments of the topic grammar.
const (
	TopicRoot     = "devices"
	ActionSegment = "actions"
	ReplySuffix   = "reply"
)

const minActionSegments = 5

// Route is the routable part of an action topic.
type Route struct {
	Device    string
	Subsystem string
	Action    string
	RequestID string
}

// ParseTopic parses an inbound action topic.
//
// Empty segments are ignored, so "devices//pi1/..." parses like "devices/pi1/...".
// It returns ErrNotRoutable for fewer than five segments, a wrong fixed
// segment, or a topic whose final segment is "reply".
func ParseTopic(topic string) (Route, error) {
	parts := segments(topic)

	if len(parts) < minActionSegments {
		return Route{}, fmt.Errorf("%w: %q has %d segments", ErrNotRoutable, topic, len(parts))
	}
	if parts[0] != TopicRoot || parts[3] != ActionSegment {
		return Route{}, fmt.Errorf("%w: %q", ErrNotRoutable, topic)
	}
	if parts[len(parts)-1] == ReplySuffix {
		return Route{}, fmt.Errorf("%w: %q is a reply topic", ErrNotRoutable, topic)
	}

	r := Route{
		Device:    parts[1],
		Subsystem: parts[2],
		Action:    parts[4],
	}
	if len(parts) > minActionSegments {
		r.RequestID = parts[5]
	}
	return r, nil
}

func segments(topic string) []string {
	raw := strings.Split(topic, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ReplyTopic returns the reply topic for an inbound topic: the topic verbatim
// with "/reply" appended.
func ReplyTopic(topic string) string {
	return topic + "/" + ReplySuffix
}

// DeviceTopic returns the outbound topic for an endpoint such as
// "/system/monitors/memory_used".
func DeviceTopic(device, endpoint string) string {
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return TopicRoot + "/" + device + endpoint
}

// ActionFilter returns the subscription filter for every action of device.
func ActionFilter(device string) string {
	return TopicRoot + "/" + device + "/+/" + ActionSegment + "/#"
}

// StatusTopic returns the retained presence topic of device.
func StatusTopic(device string) string {
	return TopicRoot + "/" + device + "/status"
}

// ActionEndpoint returns the endpoint of an action, e.g. "/gpio/actions/set_pin".
func ActionEndpoint(subsystem, action string) string {
	return "/" + subsystem + "/" + ActionSegment + "/" + action
}

// MonitorEndpoint returns the endpoint of a monitor, e.g. "/system/monitors/cpu_cores".
func MonitorEndpoint(subsystem, monitor string) string {
	return "/" + subsystem + "/monitors/" + monitor
}
