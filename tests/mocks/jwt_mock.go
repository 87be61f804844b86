package mocks

import (
	jwtLib "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/mock"
)

// JWTManagerInterface is a mock implementation of jwt.JWTManagerInterface
type JWTManagerInterface struct {
	mock.Mock
}

func (m *JWTManagerInterface) Initialize(secretPath string) error {
	args := m.Called(secretPath)
	return args.Error(0)
}

func (m *JWTManagerInterface) LoadJWT() error {
	args := m.Called()
	return args.Error(0)
}

func (m *JWTManagerInterface) SaveJWT(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *JWTManagerInterface) GetJWT() string {
	args := m.Called()
	return args.String(0)
}

func (m *JWTManagerInterface) IsJWTValid() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *JWTManagerInterface) ValidateJWT(token string) (*jwtLib.Token, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwtLib.Token), args.Error(1)
}

func (m *JWTManagerInterface) SaveRefreshToken(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *JWTManagerInterface) GetRefreshToken() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}
