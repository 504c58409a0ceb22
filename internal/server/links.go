package server

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wizline/internal/domain"
)

const defaultLinkTTL = 15 * time.Minute

type linkSigner struct {
	secret   string
	ttl      time.Duration
	now      func() time.Time
	basePath string
}

type linkClaims struct {
	jwt.RegisteredClaims
	ArtifactType domain.ArtifactType `json:"artifact_type"`
}

func (s linkSigner) enabled() bool { return strings.TrimSpace(s.secret) != "" }

func (s linkSigner) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// sign issues an HS256 token scoped to one project and artifact type.
func (s linkSigner) sign(projectID string, t domain.ArtifactType) (LinkResponse, error) {
	if !s.enabled() {
		return LinkResponse{}, errors.New("download signing secret not configured")
	}
	ttl := s.ttl
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	issued := s.clock().UTC().Truncate(time.Second)
	expires := issued.Add(ttl)
	claims := linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   projectID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		ArtifactType: t,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return LinkResponse{}, fmt.Errorf("sign link: %w", err)
	}
	download := path.Join("/", s.basePath, "projects", url.PathEscape(projectID), "artifacts", string(t), "download")
	return LinkResponse{
		URL:       download + "?token=" + url.QueryEscape(token),
		Token:     token,
		ExpiresAt: expires.Format(time.RFC3339),
	}, nil
}

func (s linkSigner) verify(token, projectID string, t domain.ArtifactType) error {
	if !s.enabled() {
		return errors.New("download signing secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	claims := &linkClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	if claims.Subject != projectID || claims.ArtifactType != t {
		return errors.New("token does not grant this artifact")
	}
	return nil
}
