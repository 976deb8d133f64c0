package mocks

import (
	context "context"

	domain "github.com/bnema/repo-digest-notifier/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockOAuthProvider is a testify mock for the OAuthProvider type
type MockOAuthProvider struct {
	mock.Mock
}

type MockOAuthProvider_Expecter struct {
	mock *mock.Mock
}

func (_m *MockOAuthProvider) EXPECT() *MockOAuthProvider_Expecter {
	return &MockOAuthProvider_Expecter{mock: &_m.Mock}
}

// AuthorizeURL provides a mock function with given fields: state
func (_m *MockOAuthProvider) AuthorizeURL(state string) (string, error) {
	ret := _m.Called(state)

	if len(ret) == 0 {
		panic("no return value specified for AuthorizeURL")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (string, error)); ok {
		return rf(state)
	}
	if rf, ok := ret.Get(0).(func(string) string); ok {
		r0 = rf(state)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(state)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockOAuthProvider_AuthorizeURL_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'AuthorizeURL'
type MockOAuthProvider_AuthorizeURL_Call struct {
	*mock.Call
}

// AuthorizeURL is a helper method to define mock.On call
//   - state string
func (_e *MockOAuthProvider_Expecter) AuthorizeURL(state interface{}) *MockOAuthProvider_AuthorizeURL_Call {
	return &MockOAuthProvider_AuthorizeURL_Call{Call: _e.mock.On("AuthorizeURL", state)}
}

func (_c *MockOAuthProvider_AuthorizeURL_Call) RunAndReturn(run func(string) (string, error)) *MockOAuthProvider_AuthorizeURL_Call {
	_c.Call.Return(run)
	return _c
}

func (_c *MockOAuthProvider_AuthorizeURL_Call) Return(_a0 string, _a1 error) *MockOAuthProvider_AuthorizeURL_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// Exchange provides a mock function with given fields: ctx, code
func (_m *MockOAuthProvider) Exchange(ctx context.Context, code string) (domain.Installation, error) {
	ret := _m.Called(ctx, code)

	if len(ret) == 0 {
		panic("no return value specified for Exchange")
	}

	var r0 domain.Installation
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (domain.Installation, error)); ok {
		return rf(ctx, code)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) domain.Installation); ok {
		r0 = rf(ctx, code)
	} else {
		r0 = ret.Get(0).(domain.Installation)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, code)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockOAuthProvider_Exchange_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Exchange'
type MockOAuthProvider_Exchange_Call struct {
	*mock.Call
}

// Exchange is a helper method to define mock.On call
//   - ctx context.Context
//   - code string
func (_e *MockOAuthProvider_Expecter) Exchange(ctx interface{}, code interface{}) *MockOAuthProvider_Exchange_Call {
	return &MockOAuthProvider_Exchange_Call{Call: _e.mock.On("Exchange", ctx, code)}
}

func (_c *MockOAuthProvider_Exchange_Call) Return(_a0 domain.Installation, _a1 error) *MockOAuthProvider_Exchange_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// NewMockOAuthProvider creates a new instance of MockOAuthProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockOAuthProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOAuthProvider {
	mock := &MockOAuthProvider{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
