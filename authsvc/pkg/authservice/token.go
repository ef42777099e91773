package authservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/todokit/authsvc"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds every claim, including unknown ones.
	Extra map[string]interface{}
}

type Tokenizer interface {
	Issue(subject string, claims map[string]interface{}, ttl time.Duration) (string, error)
	Verify(token string) (Claims, error)
}

type tokenizer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewTokenizer signs with secret using an HMAC algorithm such as HS256.
func NewTokenizer(secret []byte, algorithm string) (Tokenizer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", authsvc.ErrUnsupportedAlgorithm, algorithm)
	}

	return &tokenizer{
		secret: secret,
		method: method,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (t *tokenizer) Issue(subject string, claims map[string]interface{}, ttl time.Duration) (string, error) {
	now := t.now()

	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["sub"] = subject
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(ttl).Unix()

	return jwt.NewWithClaims(t.method, mc).SignedString(t.secret)
}

func (t *tokenizer) Verify(token string) (Claims, error) {
	parser := jwt.Parser{SkipClaimsValidation: true}

	mc := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, mc, func(tk *jwt.Token) (interface{}, error) {
		if tk.Method.Alg() != t.method.Alg() {
			return nil, authsvc.ErrUnexpectedSigningMethod
		}
		return t.secret, nil
	})
	if err != nil {
		return Claims{}, verifyError(err)
	}

	if !mc.VerifyExpiresAt(t.now().Unix(), true) {
		return Claims{}, authsvc.ErrTokenExpired
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return Claims{}, authsvc.ErrTokenMalformed
	}

	email, _ := mc["email"].(string)

	return Claims{
		Subject:   sub,
		Email:     email,
		IssuedAt:  unixClaim(mc["iat"]),
		ExpiresAt: unixClaim(mc["exp"]),
		Extra:     mc,
	}, nil
}

func verifyError(err error) error {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return authsvc.ErrTokenMalformed
	}

	switch {
	case errors.Is(ve.Inner, authsvc.ErrUnexpectedSigningMethod):
		return authsvc.ErrUnexpectedSigningMethod
	case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
		return authsvc.ErrTokenSignature
	default:
		return authsvc.ErrTokenMalformed
	}
}

func unixClaim(v interface{}) time.Time {
	if f, ok := v.(float64); ok {
		return time.Unix(int64(f), 0).UTC()
	}
	return time.Time{}
}
