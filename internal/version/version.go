// ABOUTME: Build identity constants surfaced through cmd/sessiond's and cmd/sessionctl's --version output
package version

const (
	Version      = "0.1.0"
	Product      = "sessioncore"
	Manufacturer = "resonatefm"
)
