// Package build provides the canonical execution path for hierbuild invocations.
//
// A run loads nothing itself: callers hand it a loaded manifest. The service
// assembles the unit hierarchy, applies the aggregation profiles and the
// manifest's own operations while each unit configures, evaluates the graph and
// executes the requested operations at one unit. All execution paths (run,
// watch, tests) route through Service; listings use Prepare directly.
package build
