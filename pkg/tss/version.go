package tss

// Version identifies this module's own release. ABIVersion is the
// external-surface version spec.md §6 pins at (1, 0, 0); host applications
// embedding pkg/tss/abi should check it before relying on any entry point.
var (
	Version = "v0.0.0-in-progress"
)

// ABIVersion reports the three components of the external ABI version.
func ABIVersion() (major, minor, patch uint32) {
	return 1, 0, 0
}

// WrapperVersion returns this module's own version string, populated at
// build time via ldflags in development it defaults to v0.0.0-in-progress.
func WrapperVersion() string {
	return Version
}
