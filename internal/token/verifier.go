package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99-66/simple-auth-jwt/internal/config"
)

// Policy selects how a presented credential is checked. The set is closed:
// each route picks its policy explicitly instead of having one injected.
type Policy struct {
	name string
	// requireRefresh demands that a refresh token accompany the access token.
	requireRefresh bool
	// enforceExpiry controls the claim-time check on the access token. Refresh
	// flows disable it: a refresh call is made precisely because the access
	// token may already be expired, so a structurally valid but time-expired
	// token must still yield its subject.
	enforceExpiry bool
}

func (p Policy) String() string { return p.name }

var (
	// StrictBearer verifies a lone access token from an Authorization header.
	StrictBearer = Policy{name: "strict_bearer", requireRefresh: false, enforceExpiry: true}
	// StrictCookiePair verifies an access/refresh cookie pair with full
	// expiry enforcement.
	StrictCookiePair = Policy{name: "strict_cookie_pair", requireRefresh: true, enforceExpiry: true}
	// LenientCookiePair verifies a cookie pair without the expiry check,
	// for the web refresh flow.
	LenientCookiePair = Policy{name: "lenient_cookie_pair", requireRefresh: true, enforceExpiry: false}
	// LenientBody verifies a body-submitted pair without the expiry check,
	// for the API refresh flow.
	LenientBody = Policy{name: "lenient_body", requireRefresh: true, enforceExpiry: false}
)

// TokenUser is the ephemeral request context derived from a verified token.
// It is reconstructed per request and never persisted.
type TokenUser struct {
	Subject      string
	AccessToken  string
	RefreshToken string
}

// UserID parses the subject claim as the integer user id.
func (u *TokenUser) UserID() (int64, error) {
	id, err := strconv.ParseInt(u.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject claim", ErrCredentialsInvalid)
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. A missing or malformed header is ErrCredentialsInvalid.
func BearerToken(authorization string) (string, error) {
	scheme, rest, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", ErrCredentialsInvalid
	}
	t := strings.TrimSpace(rest)
	if t == "" {
		return "", ErrCredentialsInvalid
	}
	return t, nil
}

// Verifier validates presented tokens against the signing key.
type Verifier struct {
	config        *config.Config
	strictParser  *jwt.Parser
	lenientParser *jwt.Parser
}

// NewVerifier creates a Verifier backed by the process configuration.
func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{
		config:       cfg,
		strictParser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		lenientParser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Verify runs the verification state machine for one presented credential.
// Terminal outcomes are a TokenUser, ErrCredentialsInvalid, or ErrTokenExpired.
func (v *Verifier) Verify(p Policy, accessToken, refreshToken string) (*TokenUser, error) {
	if accessToken == "" {
		return nil, ErrCredentialsInvalid
	}
	if p.requireRefresh && refreshToken == "" {
		return nil, ErrCredentialsInvalid
	}

	parser := v.lenientParser
	if p.enforceExpiry {
		parser = v.strictParser
	}

	parsed, err := parser.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialsInvalid, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrCredentialsInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrCredentialsInvalid
	}
	if _, err := strconv.ParseInt(sub, 10, 64); err != nil {
		return nil, ErrCredentialsInvalid
	}

	return &TokenUser{
		Subject:      sub,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
