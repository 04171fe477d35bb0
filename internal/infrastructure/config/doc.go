// Package config handles loading and validating nukicontrol configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The bridge token grants full control of the lock. Set it through
//     NUKICONTROL_NUKI_TOKEN rather than the file where possible.
//   - The config file should have restricted permissions (0600)
//   - Validation errors name fields, never values
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := nuki.NewClient(nuki.ClientOptions{Identity: cfg.Identity()})
package config
