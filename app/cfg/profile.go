package cfg

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProfileMerchant = "merchant"
	ProfilePages    = "pages"
)

func builtinProfile(name string) (Profile, error) {
	channel := Channel{
		Title:       "Product Catalog",
		Description: "Product feed generated from the upstream catalog",
		Language:    "ar",
	}

	switch name {
	case ProfileMerchant, "":
		return Profile{
			Name:             ProfileMerchant,
			RequiredFields:   []string{"id", "title", "link", "image", "price", "availability"},
			DefaultCondition: "new",
			Channel:          channel,
		}, nil
	case ProfilePages:
		return Profile{
			Name:             ProfilePages,
			RequiredFields:   []string{"title", "price", "availability", "image"},
			DefaultCondition: "new",
			Channel:          channel,
		}, nil
	default:
		return Profile{}, fmt.Errorf("unknown profile: %s", name)
	}
}

// LoadProfile resolves a built-in profile and overlays the optional YAML
// file on top of it. Keys absent from the file keep the built-in values.
func LoadProfile(name, path string) (Profile, error) {
	profile, err := builtinProfile(name)
	if err != nil {
		return Profile{}, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Profile{}, fmt.Errorf("failed to read profile file: %w", err)
		}

		if err := yaml.Unmarshal(data, &profile); err != nil {
			return Profile{}, fmt.Errorf("failed to parse profile YAML: %w", err)
		}
	}

	for i, field := range profile.RequiredFields {
		profile.RequiredFields[i] = strings.ToLower(strings.TrimSpace(field))
	}

	if err := validateProfile(&profile); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", profile.Name, err)
	}

	return profile, nil
}

func validateProfile(profile *Profile) error {
	validFields := map[string]bool{
		"id":           true,
		"title":        true,
		"link":         true,
		"image":        true,
		"price":        true,
		"availability": true,
		"description":  true,
		"brand":        true,
		"condition":    true,
		"product_type": true,
		"category":     true,
	}

	for i, field := range profile.RequiredFields {
		if !validFields[field] {
			return fmt.Errorf("invalid required field at index %d: %s", i, field)
		}
		if slices.Index(profile.RequiredFields, field) != i {
			return fmt.Errorf("duplicate required field: %s", field)
		}
	}

	if strings.TrimSpace(profile.Channel.Title) == "" {
		return fmt.Errorf("channel title is required")
	}

	return nil
}
