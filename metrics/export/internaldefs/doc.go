// Package internaldefs holds the shared metric definitions (stable names and
// help text) used by the exporters so every backend reports the same series.
package internaldefs
