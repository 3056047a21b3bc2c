// Package core contains the CERM client domain: configuration, typed
// operations, token lifecycle, and the contracts the outer packages plug
// into. Adapters depend on this package; core must not depend on
// transport-specific or storage-specific code.
package core
