package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Envelope is the response envelope of the reminder API.
// Auth endpoints put the token at the top level; everything else nests under data.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// AgentPayload is the data shape of /auth/login, /auth/register and /auth/me.
type AgentPayload struct {
	Agent *Agent `json:"agent"`
}

// AuthResult is a decoded login or registration response.
type AuthResult struct {
	Token string
	Agent *Agent
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Mobile      string `json:"mobile" validate:"required,numeric,len=10"`
	Password    string `json:"password" validate:"required,min=8"`
	CompanyName string `json:"company_name,omitempty" validate:"max=160"`
}

// FlexibleID accepts both numeric and string identifiers from the API.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = FlexibleID(strings.TrimSpace(n.String()))
	return nil
}
