package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .claimdeck.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to claimdeck! Let's configure your review server.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: strconv.Itoa(defaults.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 2. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (sqlite database location)",
		Default: defaults.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 3. CORS policy.
	corsPrompt := promptui.Select{
		Label: "Allow browser requests from any origin",
		Items: []string{"no (same-origin only)", "yes (development)"},
	}
	corsIdx, _, err := corsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}

	cfg := &Config{
		Port:            port,
		DataDir:         dataDir,
		AllowAllOrigins: corsIdx == 1,
		CacheTTLSeconds: defaults.CacheTTLSeconds,
	}

	configPath := ".claimdeck.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
