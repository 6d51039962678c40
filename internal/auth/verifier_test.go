package auth_test

import (
	"context"
	"errors"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/household-ledger/internal/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

type fakeIDTokens struct {
	token *fbauth.Token
	err   error
}

func (f fakeIDTokens) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	return f.token, f.err
}

var _ = Describe("JWTVerifier", func() {
	var verifier *auth.JWTVerifier

	BeforeEach(func() {
		verifier = auth.NewJWTVerifier(secret, time.Hour)
	})

	It("verifies its own tokens", func() {
		token, err := verifier.GenerateAccessToken("user-1", "ana@example.com")
		Expect(err).NotTo(HaveOccurred())

		identity, err := verifier.Verify(context.Background(), token)
		Expect(err).NotTo(HaveOccurred())
		Expect(identity.UserID).To(Equal("user-1"))
		Expect(identity.Email).To(Equal("ana@example.com"))
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewJWTVerifier("ffffffffffffffffffffffffffffffff", time.Hour)
		token, err := other.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = verifier.Verify(context.Background(), token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("reports expired tokens", func() {
		expired := auth.NewJWTVerifier(secret, time.Nanosecond)
		token, err := expired.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(1100 * time.Millisecond)

		_, err = verifier.Verify(context.Background(), token)
		Expect(err).To(MatchError(auth.ErrTokenExpired))
	})

	It("rejects unsigned tokens", func() {
		claims := &auth.Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "household-ledger"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = verifier.Verify(context.Background(), token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects garbage", func() {
		_, err := verifier.Verify(context.Background(), "not-a-token")
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})
})

var _ = Describe("FirebaseVerifier", func() {
	It("uses the Firebase uid as the user id", func() {
		verifier := auth.NewFirebaseVerifier(fakeIDTokens{token: &fbauth.Token{
			UID:    "firebase-uid",
			Claims: map[string]interface{}{"email": "ana@example.com"},
		}})

		identity, err := verifier.Verify(context.Background(), "id-token")
		Expect(err).NotTo(HaveOccurred())
		Expect(identity.UserID).To(Equal("firebase-uid"))
		Expect(identity.Email).To(Equal("ana@example.com"))
	})

	It("rejects tokens Firebase refuses", func() {
		verifier := auth.NewFirebaseVerifier(fakeIDTokens{err: errors.New("bad signature")})

		_, err := verifier.Verify(context.Background(), "id-token")
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})
})
