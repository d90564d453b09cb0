// Package logging provides structured logging for onvifctl.
//
// This package wraps a global zap logger with convenience functions. Logging is
// silent by default so CLI output stays clean; set ONVIFCTL_LOG_LEVEL (or pass
// --log-level) to see what the client is doing on the wire.
//
// # Log Levels
//
//   - Debug: SOAP payloads, probe traffic, digest challenges
//   - Info: Discovery results, device bootstrap milestones
//   - Warn: Soft failures (clock sync, stream URI resolution)
//   - Error: Hard failures
//
// # Structured Logging
//
//	logging.Info("Device initialized",
//	    zap.String("xaddr", "http://192.168.1.64/onvif/device_service"),
//	    zap.Int("profiles", 2),
//	)
//
// Packages that hold their own logger derive it with Named:
//
//	log := logging.Named("discovery")
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
package logging
