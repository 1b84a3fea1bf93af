package openstack

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
)

// DefaultCredentialDuration is the lifetime requested for temporary AK/SK.
const DefaultCredentialDuration = 15 * time.Minute

// Credential is a temporary access key pair with its security token.
type Credential struct {
	Access        string `json:"access"`
	Secret        string `json:"secret"`
	SecurityToken string `json:"securitytoken"`
	ExpiresAt     string `json:"expires_at"`
}

type securityTokenRequest struct {
	Auth struct {
		Identity struct {
			Methods []string `json:"methods"`
			Token   struct {
				DurationSeconds string `json:"duration-seconds"`
			} `json:"token"`
		} `json:"identity"`
	} `json:"auth"`
}

// securityTokensURL maps the identity endpoint to the IAM v3.0 extension.
func securityTokensURL(identityURL string) string {
	u := strings.Replace(strings.TrimRight(identityURL, "/"), "/v3", "/v3.0", 1)
	return u + "/OS-CREDENTIAL/securitytokens"
}

// TemporaryCredentials exchanges the session token for a temporary AK/SK.
func TemporaryCredentials(ctx context.Context, s *Session, duration time.Duration) (Credential, error) {
	if duration <= 0 {
		duration = DefaultCredentialDuration
	}

	identity, err := openstack.NewIdentityV3(s.Provider, gophercloud.EndpointOpts{})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to get temporary AK/SK: %w", err)
	}

	var req securityTokenRequest
	req.Auth.Identity.Methods = []string{"token"}
	req.Auth.Identity.Token.DurationSeconds = strconv.Itoa(int(duration / time.Second))

	var body struct {
		Credential Credential `json:"credential"`
	}
	_, err = identity.Post(ctx, securityTokensURL(identity.Endpoint), req, &body, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusCreated},
	})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to get temporary AK/SK: %w", err)
	}
	return body.Credential, nil
}
