// Package mqtt connects nukicontrol to an MQTT broker.
//
// It manages:
//   - Connection with auto-reconnect and subscription restore
//   - Publishing with QoS and retain control
//   - Wildcard subscriptions with panic-safe handlers
//   - A caller-supplied Last Will and Testament
//
// The lock's topic layout and payloads live in the nuki package; this
// package only moves bytes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: lwtTopic, Payload: lwt, QoS: 1})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("nukicontrol/command/nuki/+", 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Anonymous access is for local development only
package mqtt
