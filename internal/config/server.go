package config

type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
	GRPC GRPCConfig `yaml:"grpc"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GRPCConfig serves the health endpoint. Port 0 disables the listener.
type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}
