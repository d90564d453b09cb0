// Package config manages the onvifctl configuration file.
//
// The file is YAML and holds saved cameras (name, address or XAddr,
// username, discovery metadata) and application preferences such as the
// discovery window and request timeout.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/onvifctl/config.yaml or $HOME/.config/onvifctl/config.yaml
//   - macOS: $HOME/.config/onvifctl/config.yaml
//   - Windows: %LOCALAPPDATA%\onvifctl\config.yaml
//
// ONVIFCTL_CONFIG overrides the location.
//
// # Security
//
// Passwords are never written to the file.
package config
