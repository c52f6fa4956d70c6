/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Token errors. VerifyToken wraps ErrTokenInvalid with the concrete reason.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const subjectKey = "subject"

var b64 = base64.RawURLEncoding

type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"` // unix seconds
}

func mac(secret string, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return h.Sum(nil)
}

// SignToken issues a bearer token for subject valid until exp. The token is the
// base64url JSON claims and their HMAC-SHA256, joined by a dot.
func SignToken(secret, subject string, exp time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}
	payload, err := json.Marshal(tokenClaims{Sub: subject, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(b64.EncodeToString(payload))
	sb.WriteByte('.')
	sb.WriteString(b64.EncodeToString(mac(secret, payload)))
	return sb.String(), nil
}

// VerifyToken returns the subject of a token signed with secret.
func VerifyToken(secret, token string) (string, error) {
	enc, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return "", fmt.Errorf("%w: malformed", ErrTokenInvalid)
	}
	payload, err1 := b64.DecodeString(enc)
	sig, err2 := b64.DecodeString(encSig)
	if err := errors.Join(err1, err2); err != nil {
		return "", fmt.Errorf("%w: encoding: %v", ErrTokenInvalid, err)
	}
	if !hmac.Equal(mac(secret, payload), sig) {
		return "", fmt.Errorf("%w: signature mismatch", ErrTokenInvalid)
	}
	var claims tokenClaims
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&claims); err != nil || claims.Sub == "" {
		return "", fmt.Errorf("%w: claims", ErrTokenInvalid)
	}
	if time.Now().Unix() > claims.Exp {
		return "", ErrTokenExpired
	}
	return claims.Sub, nil
}

// requireAuth verifies the bearer token and stores its subject on the echo context.
func requireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, tok, _ := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
				return NewUnauthorizedError("missing bearer token")
			}
			sub, err := VerifyToken(secret, strings.TrimSpace(tok))
			if err != nil {
				return NewUnauthorizedError(err.Error())
			}
			c.Set(subjectKey, sub)
			return next(c)
		}
	}
}

func subjectOf(c echo.Context) string {
	s, _ := c.Get(subjectKey).(string)
	return s
}
