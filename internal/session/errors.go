package session

// busyError signals that a generation is already in flight for 429 mapping.
type busyError struct{ modelID string }

func (e busyError) Error() string { return "generation already in progress on " + e.modelID }

// ErrBusy constructs a busyError for the given model.
func ErrBusy(modelID string) error { return busyError{modelID: modelID} }

// IsBusy reports whether err indicates an in-flight generation (return 429).
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// ErrModelNotFound returns an error when a requested model id is not present in the catalog.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// notReadyError signals that no engine is loaded and ready for 409 mapping.
type notReadyError struct{ msg string }

func (e notReadyError) Error() string { return e.msg }

// ErrNotReady constructs a notReadyError.
func ErrNotReady(msg string) error { return notReadyError{msg: msg} }

// IsNotReady reports whether err indicates the engine is not loaded yet.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// compatibilityError signals that the host cannot run models (failed probe,
// insufficient memory, dead execution host) so the HTTP layer can return
// 503 Service Unavailable instead of 500.
type compatibilityError struct{ msg string }

func (e compatibilityError) Error() string { return e.msg }

// ErrIncompatible constructs a compatibilityError.
func ErrIncompatible(msg string) error { return compatibilityError{msg: msg} }

// IsIncompatible reports whether err indicates a host compatibility failure.
func IsIncompatible(err error) bool {
	_, ok := err.(compatibilityError)
	return ok
}

// bridgeUnavailableError signals a missing execution bridge (daemon started
// without an engine binary or build support).
type bridgeUnavailableError struct{ msg string }

func (e bridgeUnavailableError) Error() string { return e.msg }

// ErrBridgeUnavailable constructs a bridgeUnavailableError.
func ErrBridgeUnavailable(msg string) error { return bridgeUnavailableError{msg: msg} }

// IsBridgeUnavailable reports whether err indicates the execution bridge is absent.
func IsBridgeUnavailable(err error) bool {
	_, ok := err.(bridgeUnavailableError)
	return ok
}
