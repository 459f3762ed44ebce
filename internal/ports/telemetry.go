package ports

// Telemetry is a fire-and-forget structured event sink. Emit never blocks on
// downstream storage and never fails the caller.
type Telemetry interface {
	Emit(event string, payload any)
}
