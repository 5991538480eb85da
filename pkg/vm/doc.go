// Package vm implements the baseline-tier hot path primitives: the
// NaN-boxed Value representation, the fast-path conversions and strict
// equality over it, and the inline-cache subsystem (per-site caches plus
// the per-engine CacheManager registry) that memoizes dispatch outcomes.
package vm
