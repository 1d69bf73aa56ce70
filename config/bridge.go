package config

import "fmt"

// BridgeConfig connects the instance to a remote dashboard over a websocket.
// Without a bridge block the instance runs standalone.
type BridgeConfig struct {
	URL               string `hcl:"url"`
	InstanceName      string `hcl:"instance_name,optional"`
	AutoReconnect     bool   `hcl:"auto_reconnect,optional"`
	ReconnectInterval int    `hcl:"reconnect_interval,optional"` // seconds
}

// Defaults fills in default values for unset fields
func (b *BridgeConfig) Defaults() {
	if b.InstanceName == "" {
		b.InstanceName = "taskweave"
	}
	if b.ReconnectInterval <= 0 {
		b.ReconnectInterval = 5
	}
}

func (b *BridgeConfig) Validate() error {
	if b.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}
