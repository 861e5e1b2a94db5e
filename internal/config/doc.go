// Package config holds espcfg's user configuration.
//
// Two sources exist:
//   - Settings come from ESPCFG_* environment variables and are overridden
//     by command line flags.
//   - The Registry is a YAML file remembering devices by hostname (last
//     address, firmware) together with preferences such as the default host
//     and the discovery timeout.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/espcfg/config.yaml or $HOME/.config/espcfg/config.yaml
//   - macOS: $HOME/.config/espcfg/config.yaml
//   - Windows: %LOCALAPPDATA%\espcfg\config.yaml
//
// Device passwords are never written to the file.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	host := registry.Resolve("kitchen")
//	registry.Remember("kitchen", host, "ESPURNA", "1.13.5")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// The global registry is loaded once; writes go through a temporary file
// and a rename.
package config
