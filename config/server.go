package config

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `hcl:"address,optional"`
}

// Defaults fills in default values for unset fields
func (s *ServerConfig) Defaults() {
	if s.Address == "" {
		s.Address = ":8080"
	}
}
