package secrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"google.golang.org/api/googleapi"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// GCPStore stores credential blobs as Secret Manager secrets, one secret per
// (subject, provider) with the latest version holding the current blob.
type GCPStore struct {
	projectID string
	svc       *secretmanager.Service
}

func NewGCPStore(ctx context.Context, projectID string) (*GCPStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is required for the gcp secrets backend")
	}

	svc, err := secretmanager.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &GCPStore{projectID: projectID, svc: svc}, nil
}

func (s *GCPStore) secretPath(subjectID, provider string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.projectID, secretName(subjectID, provider))
}

func (s *GCPStore) Get(ctx context.Context, subjectID, provider string) ([]byte, error) {
	versionPath := s.secretPath(subjectID, provider) + "/versions/latest"

	resp, err := s.svc.Projects.Secrets.Versions.Access(versionPath).Context(ctx).Do()
	if err != nil {
		if isGoogleNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, &UnavailableError{Backend: "gcp", Err: err}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret payload: %w", err)
	}

	return data, nil
}

func (s *GCPStore) Put(ctx context.Context, subjectID, provider string, data []byte) error {
	secretPath := s.secretPath(subjectID, provider)

	_, err := s.svc.Projects.Secrets.Get(secretPath).Context(ctx).Do()
	if err != nil {
		if !isGoogleNotFound(err) {
			return &UnavailableError{Backend: "gcp", Err: err}
		}

		parent := fmt.Sprintf("projects/%s", s.projectID)
		_, err = s.svc.Projects.Secrets.Create(parent, &secretmanager.Secret{
			Replication: &secretmanager.Replication{
				Automatic: &secretmanager.Automatic{},
			},
		}).SecretId(secretName(subjectID, provider)).Context(ctx).Do()
		if err != nil {
			return &UnavailableError{Backend: "gcp", Err: err}
		}
		log.Printf("Created secret %s", secretName(subjectID, provider))
	}

	_, err = s.svc.Projects.Secrets.AddVersion(secretPath, &secretmanager.AddSecretVersionRequest{
		Payload: &secretmanager.SecretPayload{
			Data: base64.StdEncoding.EncodeToString(data),
		},
	}).Context(ctx).Do()
	if err != nil {
		return &UnavailableError{Backend: "gcp", Err: err}
	}

	return nil
}

func (s *GCPStore) Delete(ctx context.Context, subjectID, provider string) error {
	_, err := s.svc.Projects.Secrets.Delete(s.secretPath(subjectID, provider)).Context(ctx).Do()
	if err != nil {
		if isGoogleNotFound(err) {
			return nil
		}
		return &UnavailableError{Backend: "gcp", Err: err}
	}
	return nil
}

func isGoogleNotFound(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code == 404
	}
	return false
}
