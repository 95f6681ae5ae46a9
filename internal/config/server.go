package config

// ServerConfig holds configuration for the local static host
type ServerConfig struct {
	Port string
	Dir  string
}

// LoadServerConfig loads server configuration from environment variables
func LoadServerConfig(getenv func(string) string) ServerConfig {
	port := getenv("PORT")
	if port == "" {
		port = "8080" // Default to port 8080
	}

	dir := getenv("UIVERIFY_SERVE_DIR")
	if dir == "" {
		dir = "."
	}

	return ServerConfig{
		Port: port,
		Dir:  dir,
	}
}
