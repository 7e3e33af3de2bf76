// Package mqtt provides the agent's broker session.
//
// This package manages:
//   - Connection to the control-plane broker with auto-reconnect
//   - Publishing with QoS and a bounded wait for acknowledgement
//   - Wildcard subscriptions, restored after every reconnect
//   - A retained online/offline status with Last Will
//
// The broker is reached on the control-plane hostname. The username is the
// agent username and the password is the session token.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, "devices/pi1/status")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("devices/pi1/+/actions/#", 1,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
package mqtt
