package skematic

// Package skematic provides:
//
// - Compile-then-execute structural schema validation: Compile builds a
//   validator graph keyed by schema location, Validate folds an instance
//   through it and returns the accepted (possibly coerced) value or an
//   Issues tree
// - A pluggable vocabulary system with a stable keyword-consumption
//   protocol, so independently developed keyword families share one schema
//   node without conflicting
// - Reference resolution for forward, backward, cyclic, and dynamically
//   scoped references ($ref, $anchor, $dynamicRef/$dynamicAnchor)
// - A stable error model via Issues (JSON Pointer, code, message, nested
//   sub-errors for combinator branches)
//
// Design policy:
// - Keep only public APIs in the root package; put the numeric kernel under
//   internal/ and the collaborator packages under format/ and i18n/.
// - The compiled Schema is read-only and safe for concurrent validations;
//   each call gets its own evaluation context.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  s, err := skematic.CompileJSON(schemaBytes, skematic.CompileOpt{})
//  v, err := s.ValidateJSON(ctx, instanceBytes, skematic.ValidateOpt{Cast: true})
//
