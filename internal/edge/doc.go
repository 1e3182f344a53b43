// Package edge defines the value types that flow through the emulated
// edge lifecycle: the viewer Request, the Response being assembled, the
// per-stage Event handed to edge functions, and the Result each function
// returns. Values are copied at every stage boundary so a function can never
// observe or mutate the state of another stage or another in-flight request.
package edge
