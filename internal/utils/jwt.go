package utils // package utils provides token issuing and password hashing helpers

import (
    "errors"  // errors reports malformed claims
    "fmt"     // fmt formats the subject claim
    "strconv" // strconv parses the subject claim
    "time"    // time computes expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for signing and parsing tokens
)

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims is what the auth middleware extracts from a valid token.
type Claims struct {
    UserID uint64 // sub
    Role   string // role (group name)
}

// NewAccessToken signs an HS256 JWT carrying the user id as subject and the
// role as a custom claim.  The token expires after ttlMin minutes.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10), // RFC 7519 subjects are strings
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
// Only HMAC signing methods are accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // reject tokens signed with anything but HMAC (alg confusion)
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Claims{}, errors.New("invalid token")
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, errors.New("invalid claims")
    }
    var c Claims
    // subject may arrive as a string or, from older tokens, a number
    switch sub := mc["sub"].(type) {
    case string:
        id, err := strconv.ParseUint(sub, 10, 64)
        if err != nil {
            return Claims{}, errors.New("invalid subject")
        }
        c.UserID = id
    case float64:
        c.UserID = uint64(sub)
    default:
        return Claims{}, errors.New("missing subject")
    }
    c.Role, _ = mc["role"].(string)
    return c, nil
}
