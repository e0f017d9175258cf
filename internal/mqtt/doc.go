// Package mqtt mirrors UI refresh notifications onto an MQTT broker so
// devices outside the browser (wall tablets, home automation) can react
// to provider, task and calendar changes.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for
// connection management with automatic reconnection. On every
// (re-)connect it publishes a retained birth message ("online") to the
// availability topic; a will message moves the topic to "offline" on
// unexpected disconnects. Bus events go to <prefix>/events/<kind>, and
// dispatcher statistics are published, retained, to <prefix>/stats.
package mqtt
