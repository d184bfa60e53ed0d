// Package context holds the explicit runtime state shared by Wayfarer services:
// test mode and the layered configuration map.
package context

// TravelContext is the root state object handed to every service at
// construction. It replaces ambient globals: services read configuration and
// test mode only through the context they were given.
type TravelContext struct {
	testMode  bool
	configCtx ConfigurationSubcontext
}

// New creates a TravelContext with an empty configuration map.
func New() *TravelContext {
	ctx := &TravelContext{
		configCtx: NewConfigurationSubcontext(),
	}
	ctx.configCtx.SetParentContext(ctx)
	return ctx
}

// NewTestContext creates a context already in test mode.
func NewTestContext() *TravelContext {
	ctx := New()
	ctx.SetTestMode(true)
	return ctx
}

// IsTestMode reports whether deterministic test behaviour is enabled.
func (ctx *TravelContext) IsTestMode() bool {
	return ctx.testMode
}

// SetTestMode toggles test mode.
func (ctx *TravelContext) SetTestMode(testMode bool) {
	ctx.testMode = testMode
}

// Config returns the configuration subcontext.
func (ctx *TravelContext) Config() ConfigurationSubcontext {
	return ctx.configCtx
}
