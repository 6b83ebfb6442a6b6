package device

// Surface is an opaque native surface handle, e.g. a GL context or a window.
type Surface any

// Engine is the native engine as seen by the lifecycle. Lifecycle calls
// every method except Frame from the UI goroutine. Device control and
// window methods are never called while a frame is in flight; Resize and the
// Is* queries may be.
type Engine interface {
	InitDevice() error
	ShutdownDevice()
	PauseDevice()
	UnpauseDevice()

	IsDeviceInit() bool
	IsDeviceRunning() bool
	IsDevicePaused() bool

	// Frame advances the engine one tick. Called only from the render
	// goroutine.
	Frame()

	SetWindow(s Surface)
	DestroyWindow()
	Resize(width, height int)
}
