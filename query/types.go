package query

// EngineStatus requests a snapshot of the rendering engine handle.
type EngineStatus struct{}

func (EngineStatus) Type() string { return "docgen:engine-status" }

func (EngineStatus) Validate() error { return nil }
