// Package users covers account endpoints: registration, login, logout,
// profile and account deletion.
// This file defines the Data Transfer Objects returned by those endpoints.
package users

import "github.com/user/listkeeper-go/model"

// AuthResponse is returned by registration and login.
// The token is also set as the XSRF-TOKEN cookie; the client echoes it in the
// X-XSRF-TOKEN header on every authenticated request.
type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}
