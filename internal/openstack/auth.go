// Package openstack connects to a cloud described in clouds.yaml.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/tokens"
	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/client"
)

// ErrNoProject is returned when the token is not scoped to a project.
var ErrNoProject = errors.New("token is not scoped to a project")

// Session is an authenticated Keystone v3 session.
type Session struct {
	Provider  *gophercloud.ProviderClient
	Endpoints gophercloud.EndpointOpts
	ProjectID string
}

// Connect reads cloud name from cloudsFile, or from the standard clouds.yaml
// locations when cloudsFile is empty, and authenticates with its password.
// An empty name falls back to OS_CLOUD.
func Connect(ctx context.Context, cloudsFile, name string, timeout time.Duration, logger *zap.Logger) (*Session, error) {
	var opts []clouds.ParseOption
	if name != "" {
		opts = append(opts, clouds.WithCloudName(name))
	}
	if cloudsFile != "" {
		opts = append(opts, clouds.WithLocations(cloudsFile))
	}

	ao, eo, tlsConfig, err := clouds.Parse(opts...)
	if err != nil {
		return nil, fmt.Errorf("load cloud %q: %w", name, err)
	}

	provider, err := openstack.NewClient(ao.IdentityEndpoint)
	if err != nil {
		return nil, fmt.Errorf("identity endpoint: %w", err)
	}
	provider.HTTPClient = client.NewHTTPClient(timeout, tlsConfig, logger)

	if err := openstack.Authenticate(ctx, provider, ao); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &Session{
		Provider:  provider,
		Endpoints: eo,
		ProjectID: projectID(provider),
	}, nil
}

func projectID(provider *gophercloud.ProviderClient) string {
	res, ok := provider.GetAuthResult().(tokens.CreateResult)
	if !ok {
		return ""
	}
	project, err := res.ExtractProject()
	if err != nil || project == nil {
		return ""
	}
	return project.ID
}

// AccountURL builds the Swift account URL for projectID under endpoint.
func AccountURL(endpoint, projectID string) string {
	return strings.TrimRight(endpoint, "/") + "/v1/AUTH_" + projectID
}

// ObjectStorage returns a Swift client. An empty endpoint resolves the
// public object-store endpoint from the service catalog.
func (s *Session) ObjectStorage(endpoint string) (*gophercloud.ServiceClient, error) {
	if endpoint == "" {
		sc, err := openstack.NewObjectStorageV1(s.Provider, s.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("object-store endpoint: %w", err)
		}
		return sc, nil
	}

	if s.ProjectID == "" {
		return nil, ErrNoProject
	}
	return &gophercloud.ServiceClient{
		ProviderClient: s.Provider,
		Endpoint:       gophercloud.NormalizeURL(AccountURL(endpoint, s.ProjectID)),
		Type:           "object-store",
	}, nil
}
