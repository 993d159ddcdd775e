// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// ErrNoPassword is returned by Credentials.Password when none was sealed.
var ErrNoPassword = errors.New("no password sealed")

// Credentials holds a login and a password for a remote store.
//
// The password is sealed in an encrypted memguard enclave as soon as the
// Credentials are built and is only decrypted for the instant it is handed
// to a driver. The plaintext slice passed to NewCredentials is wiped.
//
// Thread Safety: Safe for concurrent use.
type Credentials struct {
	login    string
	password *memguard.Enclave
}

// NewCredentials seals password and returns credentials for login.
//
// Description:
//
//	The password bytes are copied into an enclave and the caller's copy
//	is zeroed. An empty password yields credentials with no sealed secret.
//
// Inputs:
//
//	login - User name. May be empty for stores without auth.
//	password - Plaintext password. Wiped on return.
//
// Outputs:
//
//	*Credentials - Never nil.
func NewCredentials(login string, password []byte) *Credentials {
	c := &Credentials{login: login}
	if len(password) > 0 {
		c.password = memguard.NewEnclave(password)
	}
	return c
}

// Login returns the user name.
func (c *Credentials) Login() string {
	return c.login
}

// HasPassword reports whether a password was sealed.
func (c *Credentials) HasPassword() bool {
	return c.password != nil
}

// Password decrypts the sealed password.
//
// The returned string lives in ordinary Go memory; callers should pass it
// straight to the driver and drop it.
func (c *Credentials) Password() (string, error) {
	if c.password == nil {
		return "", ErrNoPassword
	}
	buf, err := c.password.Open()
	if err != nil {
		return "", fmt.Errorf("open password enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// String hides the password.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{login=%q, password_set=%t}", c.login, c.HasPassword())
}
