package mocks

import (
	context "context"

	ports "github.com/bnema/repo-digest-notifier/internal/ports"
	mock "github.com/stretchr/testify/mock"
)

// MockDeliverer is a testify mock for the Deliverer type
type MockDeliverer struct {
	mock.Mock
}

type MockDeliverer_Expecter struct {
	mock *mock.Mock
}

func (_m *MockDeliverer) EXPECT() *MockDeliverer_Expecter {
	return &MockDeliverer_Expecter{mock: &_m.Mock}
}

// Deliver provides a mock function with given fields: ctx, msg
func (_m *MockDeliverer) Deliver(ctx context.Context, msg ports.Message) error {
	ret := _m.Called(ctx, msg)

	if len(ret) == 0 {
		panic("no return value specified for Deliver")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, ports.Message) error); ok {
		r0 = rf(ctx, msg)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockDeliverer_Deliver_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Deliver'
type MockDeliverer_Deliver_Call struct {
	*mock.Call
}

// Deliver is a helper method to define mock.On call
//   - ctx context.Context
//   - msg ports.Message
func (_e *MockDeliverer_Expecter) Deliver(ctx interface{}, msg interface{}) *MockDeliverer_Deliver_Call {
	return &MockDeliverer_Deliver_Call{Call: _e.mock.On("Deliver", ctx, msg)}
}

func (_c *MockDeliverer_Deliver_Call) Run(run func(ctx context.Context, msg ports.Message)) *MockDeliverer_Deliver_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(ports.Message))
	})
	return _c
}

func (_c *MockDeliverer_Deliver_Call) Return(_a0 error) *MockDeliverer_Deliver_Call {
	_c.Call.Return(_a0)
	return _c
}

// NewMockDeliverer creates a new instance of MockDeliverer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockDeliverer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDeliverer {
	mock := &MockDeliverer{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
