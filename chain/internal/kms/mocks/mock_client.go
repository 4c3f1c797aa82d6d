// Package mocks provides testify mocks of the kms package interfaces.
package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/stretchr/testify/mock"

	"github.com/scholardao/scholardao-deployer/chain/internal/kms"
)

var _ kms.Client = (*MockClient)(nil)

// MockClient is a mock of kms.Client.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a MockClient whose expectations are asserted when the test ends.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockClient_Expecter records typed expectations on a MockClient.
type MockClient_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation recorder.
func (m *MockClient) EXPECT() *MockClient_Expecter {
	return &MockClient_Expecter{mock: &m.Mock}
}

// GetPublicKeyWithContext implements kms.Client.
func (m *MockClient) GetPublicKeyWithContext(ctx aws.Context, input *kmslib.GetPublicKeyInput, _ ...request.Option) (*kmslib.GetPublicKeyOutput, error) {
	ret := m.Called(ctx, input)

	if fn, ok := ret.Get(0).(func(context.Context, *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error)); ok {
		return fn(ctx, input)
	}

	var out *kmslib.GetPublicKeyOutput
	if fn, ok := ret.Get(0).(func(*kmslib.GetPublicKeyInput) *kmslib.GetPublicKeyOutput); ok {
		out = fn(input)
	} else if ret.Get(0) != nil {
		out = ret.Get(0).(*kmslib.GetPublicKeyOutput)
	}

	return out, ret.Error(1)
}

// MockClient_GetPublicKeyWithContext_Call wraps a GetPublicKeyWithContext expectation.
type MockClient_GetPublicKeyWithContext_Call struct {
	*mock.Call
}

// GetPublicKeyWithContext expects a GetPublicKeyWithContext call with ctx and input.
func (e *MockClient_Expecter) GetPublicKeyWithContext(ctx any, input any) *MockClient_GetPublicKeyWithContext_Call {
	return &MockClient_GetPublicKeyWithContext_Call{Call: e.mock.On("GetPublicKeyWithContext", ctx, input)}
}

// Return sets the values returned by the expected call.
func (c *MockClient_GetPublicKeyWithContext_Call) Return(out *kmslib.GetPublicKeyOutput, err error) *MockClient_GetPublicKeyWithContext_Call {
	c.Call.Return(out, err)
	return c
}

// RunAndReturn computes the result from the call context and input.
func (c *MockClient_GetPublicKeyWithContext_Call) RunAndReturn(fn func(context.Context, *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error)) *MockClient_GetPublicKeyWithContext_Call {
	c.Call.Return(fn, nil)
	return c
}

// SignWithContext implements kms.Client.
func (m *MockClient) SignWithContext(ctx aws.Context, input *kmslib.SignInput, _ ...request.Option) (*kmslib.SignOutput, error) {
	ret := m.Called(ctx, input)

	var out *kmslib.SignOutput
	if fn, ok := ret.Get(0).(func(*kmslib.SignInput) *kmslib.SignOutput); ok {
		out = fn(input)
	} else if ret.Get(0) != nil {
		out = ret.Get(0).(*kmslib.SignOutput)
	}

	return out, ret.Error(1)
}

// MockClient_SignWithContext_Call wraps a SignWithContext expectation.
type MockClient_SignWithContext_Call struct {
	*mock.Call
}

// SignWithContext expects a SignWithContext call with ctx and input.
func (e *MockClient_Expecter) SignWithContext(ctx any, input any) *MockClient_SignWithContext_Call {
	return &MockClient_SignWithContext_Call{Call: e.mock.On("SignWithContext", ctx, input)}
}

// Return sets the values returned by the expected call.
func (c *MockClient_SignWithContext_Call) Return(out *kmslib.SignOutput, err error) *MockClient_SignWithContext_Call {
	c.Call.Return(out, err)
	return c
}

// RunAndReturn computes the returned output from the call input.
func (c *MockClient_SignWithContext_Call) RunAndReturn(fn func(*kmslib.SignInput) *kmslib.SignOutput) *MockClient_SignWithContext_Call {
	c.Call.Return(fn, nil)
	return c
}
