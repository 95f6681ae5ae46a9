package config

// TargetConfig holds where scenarios navigate and where screenshots land
type TargetConfig struct {
	// BaseURL is the origin that scenario "path" targets resolve against.
	// There is no default: the serving port differs between setups.
	BaseURL string

	// OutputDir prefixes relative screenshot paths when set
	OutputDir string
}

// LoadTargetConfig loads target configuration from environment variables
func LoadTargetConfig(getenv func(string) string) TargetConfig {
	return TargetConfig{
		BaseURL:   getenv("UIVERIFY_BASE_URL"),
		OutputDir: getenv("UIVERIFY_OUTPUT_DIR"),
	}
}
