// Package storetest provides a conformance suite for store.Backend
// implementations.
//
// Each backend calls RunConformanceSuite from its own tests:
//
//	func TestConformance(t *testing.T) {
//		storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
//			return memory.New()
//		})
//	}
//
// The factory must return a fresh, empty backend for every call. Backends
// are closed by the suite through t.Cleanup.
package storetest
