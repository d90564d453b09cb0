// Package ui renders onvifctl command output with Lipgloss.
//
// Components are rendered once and written out; nothing here is
// interactive apart from Confirm, which reads a single line.
//
//   - Header: command banner with ordered parameters
//   - Result: success, warning or failure box with troubleshooting tips
//   - RenderTable and RenderSection: discovery lists and device details
//   - Printer: writes the above to an io.Writer at the terminal width
//
// Logging stays silent unless ONVIFCTL_LOG_LEVEL is set, so this output is
// the only thing a user sees by default.
package ui
