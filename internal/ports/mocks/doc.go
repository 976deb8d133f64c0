// Package mocks holds testify mocks for the ports interfaces, written in the
// expecter style so call sites read as store.EXPECT().Get(...).Return(...).
package mocks
