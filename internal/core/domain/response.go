package domain

// RawResponse is what the transport hands back for one round trip that
// reached the service. StatusCode is 0 when the transport could not
// determine one.
type RawResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Endpoint selects which query surface a statement is sent to.
type Endpoint string

const (
	EndpointData    Endpoint = "data"
	EndpointTooling Endpoint = "tooling"
)

// ParseEndpoint maps a config or request value to an Endpoint; empty means
// the data endpoint.
func ParseEndpoint(s string) (Endpoint, bool) {
	switch Endpoint(s) {
	case "", EndpointData:
		return EndpointData, true
	case EndpointTooling:
		return EndpointTooling, true
	default:
		return "", false
	}
}
