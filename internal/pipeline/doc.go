// Package pipeline implements the stage-chaining execution core.
//
// A Pipeline is an ordered sequence of Stages. Each Stage declares the
// context variables it reads (derived from its instruction template), the
// key it writes its output under, and the external Capability it invokes.
// A Runner binds one Pipeline to the shared session store and executes it
// stage by stage, threading the accumulated context forward.
//
// Well-formedness is checked at construction: every stage's required inputs
// must be satisfiable from the pipeline's declared initial keys plus the
// output keys of earlier stages. A pipeline that fails this check cannot be
// built, so input resolution errors at run time indicate a missing initial
// context value, never a mis-ordered chain.
package pipeline
