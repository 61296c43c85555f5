// Package integration holds the end-to-end suite for shelf. The tests
// build the real binary and drive it through its CLI, plus exercise the
// library stack in process. They run behind the integration build tag:
//
//	go test -tags=integration ./tests/...
package integration
