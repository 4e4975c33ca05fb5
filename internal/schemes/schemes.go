// Package schemes implements the non-networked workers: inline data (data:) and content references (cid:).
// Both resolve through the part registry instead of the network.
package schemes

import (
	"go.opentelemetry.io/otel"
)

const (
	SchemeData = "data"
	SchemeCID  = "cid"
)

var tracer = otel.Tracer("content-fetch/internal/schemes")
