package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// noProfileText is embedded in scoring prompts when no profile is available.
const noProfileText = "Profile not provided."

// LoadProfile reads the candidate profile at path and re-serializes it as
// normalized YAML for prompt embedding. A missing or empty profile is not an
// error; scoring proceeds with a placeholder text. Invalid YAML is an error.
func LoadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return noProfileText, nil
		}
		return "", fmt.Errorf("read profile: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse profile %s: %w", path, err)
	}
	if doc == nil {
		return noProfileText, nil
	}

	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render profile %s: %w", path, err)
	}
	return string(normalized), nil
}
